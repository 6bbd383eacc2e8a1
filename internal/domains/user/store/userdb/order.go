package userdb

import (
	"fmt"

	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
	"github.com/hamidoujand/usersadmin/internal/order"
)

// translates field names from Bus layer to Store valid fields.
var orderByFieldNames = map[string]string{
	usrbus.OrderByID:        "id",
	usrbus.OrderByFirstName: "first_name",
	usrbus.OrderByLastName:  "last_name",
	usrbus.OrderByEmail:     "email",
	usrbus.OrderByCreatedAt: "created_at",
}

func orderByClause(field order.Field) (string, error) {
	by, ok := orderByFieldNames[field.Val]
	if !ok {
		return "", fmt.Errorf("%q is not a valid field to order by", field.Val)
	}

	//id breaks ties so pages never overlap.
	if by == "id" {
		return " ORDER BY id " + field.Direction, nil
	}

	return " ORDER BY " + by + " " + field.Direction + ", id ASC", nil
}
