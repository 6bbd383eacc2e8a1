package userdb

import (
	"bytes"
	"fmt"
	"strings"

	usrbus "github.com/hamidoujand/usersadmin/internal/domains/user/bus"
)

func applyFilters(filter usrbus.QueryFilter, data map[string]any, buf *bytes.Buffer) {
	var whereClause []string

	if filter.Name != nil {
		//first add to sqlx data map
		data["name"] = fmt.Sprintf("%%%s%%", *filter.Name)
		//then add to the where clause
		whereClause = append(whereClause, "(first_name ILIKE :name OR last_name ILIKE :name)")
	}

	if filter.Email != nil {
		data["email"] = fmt.Sprintf("%%%s%%", *filter.Email)
		whereClause = append(whereClause, "email ILIKE :email")
	}

	if filter.Status != nil {
		data["status"] = filter.Status.String()
		whereClause = append(whereClause, "status = :status")
	}

	//join all of them with " AND "
	if len(whereClause) > 0 {
		buf.WriteString(" WHERE ")
		buf.WriteString(strings.Join(whereClause, " AND "))
	}
}
