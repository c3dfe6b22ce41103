package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agora/contexts/governance/election-service/application/commands"
	"agora/contexts/governance/election-service/application/queries"
	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	httptransport "agora/contexts/governance/election-service/transport/http"
)

var errUnknownAction = fmt.Errorf("unknown election action: %w", domainerrors.ErrInvalidInput)

// Handler translates transport DTOs into use-case commands and back. It knows
// nothing about net/http; the platform server owns routing and encoding.
type Handler struct {
	Lifecycle   commands.LifecycleUseCase
	Candidacies commands.CandidacyUseCase
	Ballots     commands.BallotUseCase
	Elections   queries.ElectionsUseCase
	Listings    queries.CandidaciesUseCase
	Results     queries.ResultsUseCase
	Logger      *slog.Logger
}

func (h Handler) CreateElectionHandler(
	ctx context.Context,
	userID string,
	req httptransport.ElectionRequest,
) (httptransport.ElectionDetailsResponse, error) {
	types := make([]entities.PositionType, 0, len(req.PositionTypes))
	for _, item := range req.PositionTypes {
		types = append(types, entities.PositionType(strings.TrimSpace(item)))
	}
	result, err := h.Lifecycle.CreateElection(ctx, commands.CreateElectionCommand{
		ActorID:       userID,
		Election:      electionInput(req),
		PositionTypes: types,
	})
	if err != nil {
		return httptransport.ElectionDetailsResponse{}, err
	}
	return httptransport.ElectionDetailsResponse{
		Election:  mapElection(result.Election),
		Positions: mapPositions(result.Positions),
	}, nil
}

func (h Handler) UpdateElectionHandler(
	ctx context.Context,
	userID string,
	electionID string,
	req httptransport.ElectionRequest,
) (httptransport.ElectionResponse, error) {
	election, err := h.Lifecycle.UpdateElection(ctx, commands.UpdateElectionCommand{
		ActorID:    userID,
		ElectionID: electionID,
		Election:   electionInput(req),
	})
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

// TransitionElectionHandler applies one of "validate", "close" or "cancel".
func (h Handler) TransitionElectionHandler(
	ctx context.Context,
	userID string,
	electionID string,
	action string,
) (httptransport.ElectionResponse, error) {
	cmd := commands.TransitionElectionCommand{ActorID: userID, ElectionID: electionID}
	var (
		election entities.Election
		err      error
	)
	switch action {
	case "validate":
		election, err = h.Lifecycle.ValidateElection(ctx, cmd)
	case "close":
		election, err = h.Lifecycle.CloseElection(ctx, cmd)
	case "cancel":
		election, err = h.Lifecycle.CancelElection(ctx, cmd)
	default:
		return httptransport.ElectionResponse{}, errUnknownAction
	}
	if err != nil {
		return httptransport.ElectionResponse{}, err
	}
	return mapElection(election), nil
}

func (h Handler) AddPositionHandler(
	ctx context.Context,
	userID string,
	electionID string,
	req httptransport.PositionRequest,
) (httptransport.PositionResponse, error) {
	position, err := h.Lifecycle.AddPosition(ctx, commands.AddPositionCommand{
		ActorID:       userID,
		ElectionID:    electionID,
		Type:          entities.PositionType(strings.TrimSpace(req.Type)),
		Title:         req.Title,
		Description:   req.Description,
		Mandates:      req.Mandates,
		MandateMonths: req.MandateMonths,
		Eligibility:   req.Eligibility,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	return mapPosition(position), nil
}

func (h Handler) DeletePositionHandler(ctx context.Context, userID string, electionID string, positionID string) error {
	return h.Lifecycle.DeletePosition(ctx, commands.DeletePositionCommand{
		ActorID:    userID,
		ElectionID: electionID,
		PositionID: positionID,
	})
}

func (h Handler) ListElectionsHandler(ctx context.Context, status string) ([]httptransport.ElectionResponse, error) {
	elections, err := h.Elections.ListElections(ctx, entities.ElectionStatus(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.ElectionResponse, 0, len(elections))
	for _, election := range elections {
		items = append(items, mapElection(election))
	}
	return items, nil
}

func (h Handler) GetElectionHandler(ctx context.Context, electionID string) (httptransport.ElectionDetailsResponse, error) {
	details, err := h.Elections.GetElection(ctx, electionID)
	if err != nil {
		return httptransport.ElectionDetailsResponse{}, err
	}
	return httptransport.ElectionDetailsResponse{
		Election:  mapElection(details.Election),
		Positions: mapPositions(details.Positions),
	}, nil
}

// SubmitCandidacyHandler submits one candidacy, or several at once when the
// request lists position_ids.
func (h Handler) SubmitCandidacyHandler(
	ctx context.Context,
	userID string,
	electionID string,
	req httptransport.SubmitCandidacyRequest,
) ([]httptransport.CandidacyResponse, error) {
	if len(req.PositionIDs) > 0 {
		views, err := h.Candidacies.SubmitMultipleCandidacies(ctx, commands.SubmitMultipleCandidaciesCommand{
			ActorID:     userID,
			ElectionID:  electionID,
			PositionIDs: req.PositionIDs,
			Motivation:  req.Motivation,
			Programme:   req.Programme,
			Documents:   req.Documents,
		})
		if err != nil {
			return nil, err
		}
		return mapCandidacyViews(views), nil
	}
	view, err := h.Candidacies.SubmitCandidacy(ctx, commands.SubmitCandidacyCommand{
		ActorID:    userID,
		ElectionID: electionID,
		PositionID: req.PositionID,
		Motivation: req.Motivation,
		Programme:  req.Programme,
		Documents:  req.Documents,
	})
	if err != nil {
		return nil, err
	}
	return []httptransport.CandidacyResponse{mapCandidacyView(view)}, nil
}

// UpdateCandidacyHandler edits the texts of a candidacy, or replaces the set
// of positions when the request lists position_ids.
func (h Handler) UpdateCandidacyHandler(
	ctx context.Context,
	userID string,
	candidacyID string,
	req httptransport.UpdateCandidacyRequest,
) ([]httptransport.CandidacyResponse, error) {
	if len(req.PositionIDs) > 0 {
		candidacies, err := h.Candidacies.UpdateCandidacyPositions(ctx, commands.UpdateCandidacyPositionsCommand{
			ActorID:     userID,
			CandidacyID: candidacyID,
			Motivation:  req.Motivation,
			Programme:   req.Programme,
			PositionIDs: req.PositionIDs,
		})
		if err != nil {
			return nil, err
		}
		items := make([]httptransport.CandidacyResponse, 0, len(candidacies))
		for _, candidacy := range candidacies {
			items = append(items, mapCandidacy(candidacy))
		}
		return items, nil
	}
	candidacy, err := h.Candidacies.UpdateCandidacy(ctx, commands.UpdateCandidacyCommand{
		ActorID:     userID,
		CandidacyID: candidacyID,
		Motivation:  req.Motivation,
		Programme:   req.Programme,
		Documents:   req.Documents,
	})
	if err != nil {
		return nil, err
	}
	return []httptransport.CandidacyResponse{mapCandidacy(candidacy)}, nil
}

func (h Handler) DecideCandidacyHandler(
	ctx context.Context,
	userID string,
	candidacyID string,
	approve bool,
	req httptransport.DecideCandidacyRequest,
) (httptransport.CandidacyResponse, error) {
	cmd := commands.DecideCandidacyCommand{
		ActorID:     userID,
		CandidacyID: candidacyID,
		Comments:    req.Comments,
	}
	decide := h.Candidacies.RejectCandidacy
	if approve {
		decide = h.Candidacies.ValidateCandidacy
	}
	candidacy, err := decide(ctx, cmd)
	if err != nil {
		return httptransport.CandidacyResponse{}, err
	}
	return mapCandidacy(candidacy), nil
}

func (h Handler) ListElectionCandidaciesHandler(
	ctx context.Context,
	electionID string,
	status string,
) ([]httptransport.CandidacyResponse, error) {
	views, err := h.Listings.ListElectionCandidacies(ctx, electionID, entities.CandidacyStatus(strings.TrimSpace(status)))
	if err != nil {
		return nil, err
	}
	return mapCandidacyViews(views), nil
}

func (h Handler) ListMyCandidaciesHandler(ctx context.Context, userID string, electionID string) ([]httptransport.CandidacyResponse, error) {
	views, err := h.Listings.ListMemberCandidacies(ctx, userID, electionID)
	if err != nil {
		return nil, err
	}
	return mapCandidacyViews(views), nil
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	userID string,
	electionID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	vote, err := h.Ballots.CastVote(ctx, commands.CastVoteCommand{
		ActorID:     userID,
		ElectionID:  electionID,
		PositionID:  req.PositionID,
		CandidacyID: req.CandidacyID,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return mapVote(vote), nil
}

func (h Handler) ListMyVotesHandler(ctx context.Context, userID string, electionID string) ([]httptransport.VoteResponse, error) {
	votes, err := h.Listings.ListMemberVotes(ctx, userID, electionID)
	if err != nil {
		return nil, err
	}
	items := make([]httptransport.VoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, mapVote(vote))
	}
	return items, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string) (httptransport.ResultsResponse, error) {
	results, err := h.Results.ComputeResults(ctx, electionID)
	if err != nil {
		return httptransport.ResultsResponse{}, err
	}
	response := httptransport.ResultsResponse{
		Election:      mapElection(results.Election),
		Positions:     make([]httptransport.PositionResultResponse, 0, len(results.Positions)),
		Voters:        results.Voters,
		QuorumPercent: results.QuorumPercent,
		MajorityRule:  string(results.MajorityRule),
	}
	for _, position := range results.Positions {
		item := httptransport.PositionResultResponse{
			Position:    mapPosition(position.Position),
			Candidacies: make([]httptransport.CandidacyResultResponse, 0, len(position.Candidacies)),
			TotalVotes:  position.TotalVotes,
			BlankVotes:  position.BlankVotes,
		}
		for _, candidacy := range position.Candidacies {
			item.Candidacies = append(item.Candidacies, httptransport.CandidacyResultResponse{
				Candidacy:  mapCandidacyView(candidacy.Candidacy),
				VotesCount: candidacy.VotesCount,
				Percentage: candidacy.Percentage,
			})
		}
		response.Positions = append(response.Positions, item)
	}
	return response, nil
}

func electionInput(req httptransport.ElectionRequest) commands.ElectionInput {
	return commands.ElectionInput{
		Title:             req.Title,
		Description:       req.Description,
		OpensAt:           req.OpensAt,
		ClosesAt:          req.ClosesAt,
		BallotAt:          req.BallotAt,
		CandidacyClosesAt: req.CandidacyClosesAt,
		QuorumPercent:     req.QuorumPercent,
		MajorityRule:      entities.MajorityRule(strings.TrimSpace(req.MajorityRule)),
		DefaultSeats:      req.DefaultSeats,
	}
}

func mapElection(election entities.Election) httptransport.ElectionResponse {
	return httptransport.ElectionResponse{
		ElectionID:        election.ElectionID,
		Title:             election.Title,
		Description:       election.Description,
		OpensAt:           election.OpensAt,
		ClosesAt:          election.ClosesAt,
		BallotAt:          election.BallotAt,
		CandidacyClosesAt: election.CandidacyClosesAt,
		QuorumPercent:     election.QuorumPercent,
		MajorityRule:      string(election.MajorityRule),
		Status:            string(election.Status),
		DefaultSeats:      election.DefaultSeats,
		CreatedBy:         election.CreatedBy,
		CreatedAt:         election.CreatedAt,
		UpdatedAt:         election.UpdatedAt,
	}
}

func mapPosition(position entities.Position) httptransport.PositionResponse {
	return httptransport.PositionResponse{
		PositionID:    position.PositionID,
		ElectionID:    position.ElectionID,
		Type:          string(position.Type),
		Title:         position.Title,
		Description:   position.Description,
		Mandates:      position.Mandates,
		MandateMonths: position.MandateMonths,
		Eligibility:   position.Eligibility,
	}
}

func mapPositions(positions []entities.Position) []httptransport.PositionResponse {
	items := make([]httptransport.PositionResponse, 0, len(positions))
	for _, position := range positions {
		items = append(items, mapPosition(position))
	}
	return items
}

func mapCandidacy(candidacy entities.Candidacy) httptransport.CandidacyResponse {
	return httptransport.CandidacyResponse{
		CandidacyID: candidacy.CandidacyID,
		ElectionID:  candidacy.ElectionID,
		PositionID:  candidacy.PositionID,
		MemberID:    candidacy.MemberID,
		Motivation:  candidacy.Motivation,
		Programme:   candidacy.Programme,
		Documents:   candidacy.Documents,
		Status:      string(candidacy.Status),
		ValidatedBy: candidacy.ValidatedBy,
		ValidatedAt: candidacy.ValidatedAt,
		Comments:    candidacy.Comments,
		CreatedAt:   candidacy.CreatedAt,
		UpdatedAt:   candidacy.UpdatedAt,
	}
}

func mapCandidacyView(view entities.CandidacyView) httptransport.CandidacyResponse {
	item := mapCandidacy(view.Candidacy)
	item.PositionTitle = view.Position.Title
	item.MemberName = view.MemberName
	return item
}

func mapCandidacyViews(views []entities.CandidacyView) []httptransport.CandidacyResponse {
	items := make([]httptransport.CandidacyResponse, 0, len(views))
	for _, view := range views {
		items = append(items, mapCandidacyView(view))
	}
	return items
}

func mapVote(vote entities.Vote) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		VoteID:      vote.VoteID,
		ElectionID:  vote.ElectionID,
		PositionID:  vote.PositionID,
		CandidacyID: vote.CandidacyID,
		Status:      string(vote.Status),
		CreatedAt:   vote.CreatedAt,
	}
}
