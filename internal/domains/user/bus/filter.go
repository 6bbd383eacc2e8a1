package bus

type QueryFilter struct {
	// Name matches first or last name, case insensitive.
	Name   *string
	Email  *string
	Status *Status
}
