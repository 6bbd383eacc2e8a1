package bus

import "github.com/hamidoujand/usersadmin/internal/order"

const (
	OrderByID        = "id"
	OrderByFirstName = "firstName"
	OrderByLastName  = "lastName"
	OrderByEmail     = "email"
	OrderByCreatedAt = "createdAt"
)

// OrderByFields is the set of fields a user query can be sorted by.
var OrderByFields = map[string]string{
	OrderByID:        OrderByID,
	OrderByFirstName: OrderByFirstName,
	OrderByLastName:  OrderByLastName,
	OrderByEmail:     OrderByEmail,
	OrderByCreatedAt: OrderByCreatedAt,
}

// DefaultOrderBy sorts users by id ascending.
var DefaultOrderBy = order.NewField(OrderByID, order.ASC)
