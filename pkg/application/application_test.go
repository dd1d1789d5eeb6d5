package application

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type greeter struct{ name string }

type stubController struct{ key string }

func (c stubController) Key() string { return c.key }

func (c stubController) Register(r *mux.Router) {
	r.HandleFunc(c.key, func(w http.ResponseWriter, r *http.Request) {})
}

type stubModule struct {
	name string
	err  error
}

func (m stubModule) Name() string { return m.name }

func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterServices(&greeter{name: m.name})
	app.RegisterControllers(stubController{key: "/" + m.name})
	return nil
}

func TestApplication_ServiceRegistry(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterServices(&greeter{name: "org"})

	svc := app.Service(greeter{}).(*greeter)
	require.Equal(t, "org", svc.name)
	require.Panics(t, func() { app.Service(stubController{}) })
}

func TestLoadModules(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.NoError(t, LoadModules(app, stubModule{name: "b"}, stubModule{name: "a"}))

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "/a", controllers[0].Key())

	err := LoadModules(app, stubModule{name: "broken", err: errors.New("no pool")})
	require.ErrorContains(t, err, "module broken: no pool")
}
