package payment

// IDGenerator allocates payment identifiers. Uniqueness is not checked.
type IDGenerator interface {
	NewID() string
}
