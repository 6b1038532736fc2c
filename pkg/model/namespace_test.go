package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/simplemem/pkg/model"
)

func TestNewNamespace(t *testing.T) {
	t.Run("default table", func(t *testing.T) {
		ns, err := model.NewNamespace("tenant-1", "")
		gt.NoError(t, err)
		gt.Equal(t, ns.Table, model.DefaultTable)
		gt.Equal(t, ns.Collection(), "tenant-1__default")
	})

	t.Run("explicit table", func(t *testing.T) {
		ns, err := model.NewNamespace("tenant-1", "project.alpha")
		gt.NoError(t, err)
		gt.Equal(t, ns.Collection(), "tenant-1__project.alpha")
	})

	t.Run("empty tenant", func(t *testing.T) {
		_, err := model.NewNamespace("", "notes")
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrValidation))
	})

	t.Run("rejects unsafe characters", func(t *testing.T) {
		for _, tenant := range []string{"a b", "a/b", "a__b", "日本語"} {
			_, err := model.NewNamespace(tenant, "")
			gt.Error(t, err)
		}
	})

	t.Run("same table name never collides across tenants", func(t *testing.T) {
		a, err := model.NewNamespace("alice", "notes")
		gt.NoError(t, err)
		b, err := model.NewNamespace("bob", "notes")
		gt.NoError(t, err)
		gt.NotEqual(t, a.Collection(), b.Collection())
	})
}
