package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/taskboard/internal/api/v1"
	"github.com/gosuda/taskboard/internal/api/ws"
)

func registerPublicRoutes(api huma.API, deps Deps) {
	v1.RegisterTeamRoutes(api, deps.Store)
	v1.RegisterAuthRoutes(api, deps.Store, deps.Auth)
}

func registerAPIRoutes(api huma.API, deps Deps) {
	v1.RegisterMeRoute(api, deps.Auth)
	v1.RegisterTaskRoutes(api, deps.Store, deps.Tasks)
	v1.RegisterBoardRoutes(api, deps.Store)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board", hub.ServeBoard)
}
