package router

import (
	userapp "github.com/adiwijaya/identity-service/internal/application"
	"github.com/adiwijaya/identity-service/internal/container"
	repouser "github.com/adiwijaya/identity-service/internal/domain/repository"
	pginfra "github.com/adiwijaya/identity-service/internal/infrastructure/postgres"
	handlers "github.com/adiwijaya/identity-service/internal/interface/http"
	usermodule "github.com/adiwijaya/identity-service/internal/router/modules"
)

type UserModuleDeps struct {
	Store   repouser.UserStore
	Service *userapp.Service
	Handler *handlers.UserHandler
}

func buildUserDeps() UserModuleDeps {
	store := pginfra.NewUserStore(container.GetPGPool())

	service := userapp.NewService(
		store,
		container.GetLogger(),
		container.GetRedis(),
		container.GetRabbitPub(),
		container.GetES(),
		container.GetConfig().ESUsersIndex,
	)

	handler := handlers.NewUserHandler(service, container.GetLogger())

	return UserModuleDeps{
		Store:   store,
		Service: service,
		Handler: handler,
	}
}

// InitModules initializes all application modules and registers them with the
// router registry. Called once during startup.
func InitModules(r *Registry) {
	userDeps := buildUserDeps()
	r.Add(usermodule.New(userDeps.Handler))
}
