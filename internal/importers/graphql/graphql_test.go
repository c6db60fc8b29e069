package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"api-collector/internal/common/errors"
	commonhttp "api-collector/internal/common/http"
	"api-collector/internal/models"
)

// introspectionFixture mimics a schema with one query, one mutation and a
// deeply wrapped argument type.
const introspectionFixture = `{
  "data": {
    "__schema": {
      "queryType": {"name": "Query"},
      "mutationType": {"name": "Mutation"},
      "subscriptionType": null,
      "types": [
        {
          "kind": "OBJECT",
          "name": "Query",
          "fields": [
            {
              "name": "user",
              "description": "look up one user",
              "args": [
                {
                  "name": "id",
                  "type": {"kind": "NON_NULL", "name": "", "ofType": {"kind": "SCALAR", "name": "ID"}}
                },
                {
                  "name": "tags",
                  "type": {
                    "kind": "NON_NULL", "name": "",
                    "ofType": {
                      "kind": "LIST", "name": "",
                      "ofType": {"kind": "NON_NULL", "name": "", "ofType": {"kind": "SCALAR", "name": "String"}}
                    }
                  }
                },
                {
                  "name": "limit",
                  "defaultValue": "10",
                  "type": {"kind": "SCALAR", "name": "Int"}
                }
              ],
              "type": {"kind": "OBJECT", "name": "User"}
            }
          ]
        },
        {
          "kind": "OBJECT",
          "name": "Mutation",
          "fields": [
            {
              "name": "user",
              "args": [],
              "type": {"kind": "SCALAR", "name": "Boolean"}
            }
          ]
        },
        {"kind": "OBJECT", "name": "User", "fields": []}
      ]
    }
  }
}`

func newIntrospectionServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)

		var request map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		assert.Contains(t, request["query"], "__schema")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParse_EmitsFunctionsPerOperationType(t *testing.T) {
	server := newIntrospectionServer(t, introspectionFixture, http.StatusOK)
	importer := New(commonhttp.NewCallerWithClient(server.Client()))

	functions, metadata, err := importer.Parse(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, functions, 2)
	assert.Empty(t, metadata.Warnings)

	query := functions[0]
	assert.Equal(t, "user", query.ID)
	assert.Equal(t, "POST", query.Method)
	assert.Equal(t, "/graphql", query.Path)
	assert.Equal(t, "query", query.Attribute(models.AttrOperationType))
	assert.Equal(t, "User", query.Attribute(models.AttrReturnType))

	// Same field name on the mutation type gets a disambiguated id
	mutation := functions[1]
	assert.Equal(t, "mutation_user", mutation.ID)
	assert.Equal(t, "mutation", mutation.Attribute(models.AttrOperationType))
}

func TestParse_ArgumentUnwrapping(t *testing.T) {
	server := newIntrospectionServer(t, introspectionFixture, http.StatusOK)
	importer := New(commonhttp.NewCallerWithClient(server.Client()))

	functions, _, err := importer.Parse(context.Background(), server.URL)
	require.NoError(t, err)

	params := functions[0].Parameters
	require.Len(t, params, 3)

	// NON_NULL(ID) is required string
	assert.Equal(t, "id", params[0].Name)
	assert.True(t, params[0].Required)
	assert.Equal(t, models.ParameterTypeString, params[0].Type)
	assert.Equal(t, models.ParameterLocationBody, params[0].Location)

	// NON_NULL(LIST(NON_NULL(String))) is a required array
	assert.Equal(t, "tags", params[1].Name)
	assert.True(t, params[1].Required)
	assert.Equal(t, models.ParameterTypeArray, params[1].Type)

	// Bare Int is optional with its declared default
	assert.Equal(t, "limit", params[2].Name)
	assert.False(t, params[2].Required)
	assert.Equal(t, models.ParameterTypeInteger, params[2].Type)
	assert.Equal(t, "10", params[2].Default)
}

func TestParse_NonSuccessStatus(t *testing.T) {
	server := newIntrospectionServer(t, `{"error":"nope"}`, http.StatusForbidden)
	importer := New(commonhttp.NewCallerWithClient(server.Client()))

	_, _, err := importer.Parse(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIntrospection))
}

func TestParse_UnreachableEndpoint(t *testing.T) {
	importer := New(commonhttp.NewCaller())

	_, _, err := importer.Parse(context.Background(), "http://127.0.0.1:1/graphql")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIntrospection))
}

func TestParse_GraphQLErrors(t *testing.T) {
	server := newIntrospectionServer(t, `{"errors":[{"message":"introspection disabled"}]}`, http.StatusOK)
	importer := New(commonhttp.NewCallerWithClient(server.Client()))

	_, _, err := importer.Parse(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeFormat))
}

func TestUnwrapType_BoundedDepth(t *testing.T) {
	// Build a cyclic ofType chain; unwrapping must fail, not hang
	cyclic := &typeRef{Kind: "NON_NULL"}
	cyclic.OfType = cyclic

	_, _, err := unwrapType(cyclic)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting")
}

func TestUnwrapType_DeepFiniteNesting(t *testing.T) {
	// LIST(NON_NULL(LIST(NON_NULL(String)))) unwraps to String, optional
	ref := &typeRef{Kind: "LIST", OfType: &typeRef{Kind: "NON_NULL", OfType: &typeRef{
		Kind: "LIST", OfType: &typeRef{Kind: "NON_NULL", OfType: &typeRef{Kind: "SCALAR", Name: "String"}},
	}}}

	name, required, err := unwrapType(ref)
	require.NoError(t, err)
	assert.Equal(t, "String", name)
	assert.False(t, required)
}
