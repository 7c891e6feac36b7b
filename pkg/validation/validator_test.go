package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"required,username"`
	Email string `json:"email" validate:"required,email"`
	Age   *int   `json:"age" validate:"required,userage"`
	Score int    `validate:"max=10"`
}

func TestToDetails_ValidationErrors(t *testing.T) {
	age := -1
	err := New().Struct(sample{Name: "A", Email: "bad", Age: &age, Score: 11})
	require.Error(t, err)

	assert.Equal(t, map[string]string{
		"name":  "must be between 2 and 80 characters long",
		"email": "must be a valid email",
		"age":   "must be at least 0",
		"score": "must be at most 10",
	}, ToDetails(err))
}

func TestToDetails_Required(t *testing.T) {
	err := New().Struct(sample{})
	details := ToDetails(err)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "is required", details["email"])
	assert.Equal(t, "is required", details["age"])
}

func TestToDetails_JSONErrors(t *testing.T) {
	var s sample
	err := json.Unmarshal([]byte(`{"age":"ten"}`), &s)
	assert.Equal(t, map[string]string{"age": "must be a int"}, ToDetails(err))

	err = json.Unmarshal([]byte(`{"name":}`), &s)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("EOF")))
	assert.Nil(t, ToDetails(nil))
}

func TestVar_StringLengthMessages(t *testing.T) {
	err := New().Var("abc", "min=5")
	assert.Equal(t, map[string]string{"": "must be at least 5 characters long"}, ToDetails(err))
}
