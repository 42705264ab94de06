package controllers

import (
	"net/http"

	gql "github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/canteen/pkg/ctx"
)

type GraphQLController struct {
	schema gql.Schema
}

func NewGraphQLController(schema gql.Schema) *GraphQLController {
	return &GraphQLController{schema: schema}
}

// GraphQLRequest is the standard POST body.
type GraphQLRequest struct {
	Query         string         `json:"query" validate:"required"`
	Variables     map[string]any `json:"variables"`
	OperationName string         `json:"operationName"`
	Extensions    map[string]any `json:"extensions"`
}

// Query answers with the GraphQL {data, errors} shape rather than the
// usual envelope, so stock GraphQL clients can read it.
func (g *GraphQLController) Query(c *ctx.Context) {
	var in GraphQLRequest
	if !c.BindJSON(&in) {
		return
	}

	result := gql.Do(gql.Params{
		Schema:         g.schema,
		RequestString:  in.Query,
		VariableValues: in.Variables,
		OperationName:  in.OperationName,
		Context:        c.Context(),
	})
	c.JSON(http.StatusOK, result)
}
