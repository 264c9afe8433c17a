package health

import (
	"github.com/foxseedlab/pwbot/internal/config"
	"github.com/foxseedlab/pwbot/internal/lobby"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		lobbies := do.MustInvoke[*lobby.Manager](i)
		return NewServer(cfg.HealthAddr, repo, lobbies), nil
	})
}
