// Package graphql serves a read-only GraphQL view of orders:
//
//	{ order(qrCode: "ORD-...", orderDate: "2026-10-16") { studentName items { name price } status } }
//
// orderDate defaults to today in the configured zone, matching the scanner.
package graphql

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/canteen/app/models"
	"github.com/shashiranjanraj/canteen/pkg/datastore"
)

var itemType = graphql.NewObject(graphql.ObjectConfig{
	Name: "OrderItem",
	Fields: graphql.Fields{
		"name": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (any, error) { return p.Source.(models.OrderItem).Name, nil },
		},
		"price": &graphql.Field{
			Type:    graphql.NewNonNull(graphql.Float),
			Resolve: func(p graphql.ResolveParams) (any, error) { return p.Source.(models.OrderItem).Price, nil },
		},
	},
})

func orderField(t graphql.Output, get func(o *models.Order) any) *graphql.Field {
	return &graphql.Field{
		Type:    t,
		Resolve: func(p graphql.ResolveParams) (any, error) { return get(p.Source.(*models.Order)), nil },
	}
}

var orderType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Order",
	Fields: graphql.Fields{
		"id":          orderField(graphql.NewNonNull(graphql.ID), func(o *models.Order) any { return o.ID }),
		"studentName": orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return o.StudentName }),
		"studentId":   orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return o.StudentID }),
		"items":       orderField(graphql.NewList(itemType), func(o *models.Order) any { return o.Items }),
		"totalAmount": orderField(graphql.NewNonNull(graphql.Float), func(o *models.Order) any { return o.TotalAmount }),
		"total":       orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return models.FormatAmount(o.TotalAmount) }),
		"qrCode":      orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return o.QRCode }),
		"orderDate":   orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return o.OrderDate }),
		"status":      orderField(graphql.NewNonNull(graphql.String), func(o *models.Order) any { return string(o.Status) }),
		"fulfilledBy": orderField(graphql.String, func(o *models.Order) any {
			if o.FulfilledBy == nil {
				return nil
			}
			return *o.FulfilledBy
		}),
		"fulfilledAt": orderField(graphql.String, func(o *models.Order) any {
			if o.FulfilledAt == nil {
				return nil
			}
			return o.FulfilledAt.UTC().Format(time.RFC3339)
		}),
	},
})

// NewSchema builds the schema over store. now and loc decide the default
// orderDate.
func NewSchema(store datastore.Orders, loc *time.Location, now func() time.Time) (graphql.Schema, error) {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"order": &graphql.Field{
				Type: orderType,
				Args: graphql.FieldConfigArgument{
					"qrCode":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"orderDate": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					code, _ := p.Args["qrCode"].(string)
					day, _ := p.Args["orderDate"].(string)
					if day == "" {
						day = now().In(loc).Format(time.DateOnly)
					}
					o, err := store.FindOne(p.Context, datastore.Filter{"qr_code": code, "order_date": day})
					if err != nil || o == nil {
						return nil, err
					}
					return o, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}
