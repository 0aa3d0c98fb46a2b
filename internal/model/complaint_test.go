package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studentdesk/complaints/internal/model"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to model.Status
		allowed  bool
	}{
		{model.StatusOpen, model.StatusInProgress, true},
		{model.StatusOpen, model.StatusResolved, true},
		{model.StatusInProgress, model.StatusOpen, true},
		{model.StatusInProgress, model.StatusResolved, true},
		{model.StatusOpen, model.StatusOpen, true},
		{model.StatusResolved, model.StatusOpen, false},
		{model.StatusResolved, model.StatusInProgress, false},
		{model.StatusResolved, model.StatusResolved, false},
		{model.StatusOpen, model.Status("closed"), false},
		{model.Status(""), model.StatusOpen, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range model.Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, model.Category("billing").Valid())
	assert.False(t, model.Category("").Valid())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, model.RoleStudent.Valid())
	assert.True(t, model.RoleAdmin.Valid())
	assert.False(t, model.Role("staff").Valid())
}
