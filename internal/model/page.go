package model

// Page is a resolved offset/limit window.
type Page struct {
	Offset int
	Limit  int
}
