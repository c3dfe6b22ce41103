package electionservice

import (
	"log/slog"

	httpadapter "agora/contexts/governance/election-service/adapters/http"
	"agora/contexts/governance/election-service/adapters/memory"
	"agora/contexts/governance/election-service/application/commands"
	"agora/contexts/governance/election-service/application/queries"
	"agora/contexts/governance/election-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Elections   ports.ElectionRepository
	Candidacies ports.CandidacyRepository
	Votes       ports.VoteRepository
	Directory   ports.Directory
	Views       ports.ViewInvalidator
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

// NewLifecycle builds the lifecycle use case on its own; the worker process
// needs it without the HTTP handler.
func NewLifecycle(deps Dependencies) commands.LifecycleUseCase {
	return commands.LifecycleUseCase{
		Elections: deps.Elections,
		Directory: deps.Directory,
		Views:     deps.Views,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Lifecycle: NewLifecycle(deps),
			Candidacies: commands.CandidacyUseCase{
				Elections:   deps.Elections,
				Candidacies: deps.Candidacies,
				Votes:       deps.Votes,
				Directory:   deps.Directory,
				Views:       deps.Views,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Ballots: commands.BallotUseCase{
				Elections:   deps.Elections,
				Candidacies: deps.Candidacies,
				Votes:       deps.Votes,
				Directory:   deps.Directory,
				Views:       deps.Views,
				Clock:       deps.Clock,
				IDGen:       deps.IDGen,
				Logger:      deps.Logger,
			},
			Elections: queries.ElectionsUseCase{
				Elections: deps.Elections,
			},
			Listings: queries.CandidaciesUseCase{
				Elections:   deps.Elections,
				Candidacies: deps.Candidacies,
				Votes:       deps.Votes,
				Directory:   deps.Directory,
			},
			Results: queries.ResultsUseCase{
				Elections:   deps.Elections,
				Candidacies: deps.Candidacies,
				Votes:       deps.Votes,
				Directory:   deps.Directory,
				Logger:      deps.Logger,
			},
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires every port to one memory store. The store also
// acts as identity directory, so callers register actors through it.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Elections:   store,
		Candidacies: store,
		Votes:       store,
		Directory:   store,
		Views:       store,
		Clock:       store,
		IDGen:       store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
