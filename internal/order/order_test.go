package order_test

import (
	"testing"

	"github.com/hamidoujand/usersadmin/internal/order"
)

var fields = map[string]string{
	"id":       "id",
	"lastName": "lastName",
}

func Test_Parse(t *testing.T) {
	def := order.NewField("id", order.ASC)

	tests := []struct {
		query     string
		want      order.Field
		expectErr bool
	}{
		{query: "", want: def},
		{query: "lastName", want: order.Field{Val: "lastName", Direction: order.ASC}},
		{query: "lastName,desc", want: order.Field{Val: "lastName", Direction: order.DESC}},
		{query: "id, DESC", want: order.Field{Val: "id", Direction: order.DESC}},
		{query: "password", expectErr: true},
		{query: "id,sideways", expectErr: true},
		{query: "id,asc,desc", expectErr: true},
	}

	for _, tt := range tests {
		got, err := order.Parse(fields, tt.query, def)
		if tt.expectErr {
			if err == nil {
				t.Errorf("%q: expected to fail", tt.query)
			}
			continue
		}

		if err != nil {
			t.Errorf("%q: expected to parse: %s", tt.query, err)
			continue
		}

		if got != tt.want {
			t.Errorf("%q: field=%+v, got=%+v", tt.query, tt.want, got)
		}
	}
}
