package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance/election-service/domain/entities"
	domainerrors "agora/contexts/governance/election-service/domain/errors"
	"agora/contexts/governance/election-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
	seq       int
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type candidacyRecord struct {
	candidacy entities.Candidacy
	seq       int
}

type positionRecord struct {
	position entities.Position
	seq      int
}

// Store is an in-process implementation of every election-service port. Each
// mutation runs under one lock, so the multi-row writes are atomic.
type Store struct {
	mu  sync.RWMutex
	seq int

	elections   map[string]entities.Election
	positions   map[string]positionRecord
	candidacies map[string]candidacyRecord
	votes       map[string]entities.Vote
	outbox      map[string]outboxRecord
	eventDedup  map[string]dedupRecord

	actors        map[string]entities.Actor
	members       map[string]entities.Member
	revalidated   []string
	notifications []ports.CandidacyNotification
}

func NewStore() *Store {
	return &Store{
		elections:   make(map[string]entities.Election),
		positions:   make(map[string]positionRecord),
		candidacies: make(map[string]candidacyRecord),
		votes:       make(map[string]entities.Vote),
		outbox:      make(map[string]outboxRecord),
		eventDedup:  make(map[string]dedupRecord),
		actors:      make(map[string]entities.Actor),
		members:     make(map[string]entities.Member),
	}
}

// SetActor registers an identity and, when it carries a member id, a matching
// member profile unless one exists already.
func (s *Store) SetActor(actor entities.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	actor.UserID = strings.TrimSpace(actor.UserID)
	actor.MemberID = strings.TrimSpace(actor.MemberID)
	s.actors[actor.UserID] = actor
	if actor.MemberID == "" {
		return
	}
	if _, ok := s.members[actor.MemberID]; !ok {
		s.members[actor.MemberID] = entities.Member{
			MemberID:  actor.MemberID,
			UserID:    actor.UserID,
			FirstName: actor.DisplayName,
		}
	}
}

func (s *Store) SetMember(member entities.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[strings.TrimSpace(member.MemberID)] = member
}

func (s *Store) GetActor(_ context.Context, userID string) (entities.Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actor, ok := s.actors[strings.TrimSpace(userID)]
	if !ok {
		return entities.Actor{}, domainerrors.ErrMemberNotFound
	}
	if actor.DisplayName == "" {
		if member, ok := s.members[actor.MemberID]; ok {
			actor.DisplayName = member.DisplayName()
		}
	}
	return actor, nil
}

func (s *Store) GetMember(_ context.Context, memberID string) (entities.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	member, ok := s.members[strings.TrimSpace(memberID)]
	if !ok {
		return entities.Member{}, domainerrors.ErrMemberNotFound
	}
	return member, nil
}

func (s *Store) CreateElection(
	_ context.Context,
	election entities.Election,
	positions []entities.Position,
	events ...ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.elections[election.ElectionID]; exists {
		return domainerrors.ErrConflict
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return err
	}
	s.elections[election.ElectionID] = election
	for _, position := range positions {
		s.seq++
		s.positions[position.PositionID] = positionRecord{position: position, seq: s.seq}
	}
	return s.appendOutboxLocked(events)
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[strings.TrimSpace(electionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListElections(_ context.Context, status entities.ElectionStatus) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0, len(s.elections))
	for _, election := range s.elections {
		if status != "" && election.Status != status {
			continue
		}
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].OpensAt.Equal(items[j].OpensAt) {
			return items[i].ElectionID < items[j].ElectionID
		}
		return items[i].OpensAt.After(items[j].OpensAt)
	})
	return items, nil
}

func (s *Store) UpdateElection(_ context.Context, election entities.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.elections[election.ElectionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if current.Status != entities.ElectionStatusPreparation {
		return domainerrors.ErrElectionLocked
	}
	election.Status = current.Status
	s.elections[election.ElectionID] = election
	return nil
}

func (s *Store) TransitionElection(
	_ context.Context,
	transition ports.ElectionTransition,
	events ...ports.EventEnvelope,
) (entities.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, ok := s.elections[strings.TrimSpace(transition.ElectionID)]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	if election.Status != transition.From {
		return entities.Election{}, domainerrors.ErrConflict
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return entities.Election{}, err
	}
	election.Status = transition.To
	election.UpdatedAt = transition.At.UTC()
	if transition.ClosesAt != nil {
		election.ClosesAt = transition.ClosesAt.UTC()
	}
	s.elections[election.ElectionID] = election
	if err := s.appendOutboxLocked(events); err != nil {
		return entities.Election{}, err
	}
	return election, nil
}

func (s *Store) ListElectionsDueForClose(_ context.Context, now time.Time, limit int) ([]entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Election, 0)
	for _, election := range s.elections {
		if election.Status != entities.ElectionStatusOpen || election.ClosesAt.After(now) {
			continue
		}
		items = append(items, election)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ClosesAt.Before(items[j].ClosesAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) CreatePosition(_ context.Context, position entities.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, ok := s.elections[position.ElectionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if election.Status != entities.ElectionStatusPreparation {
		return domainerrors.ErrElectionLocked
	}
	s.seq++
	s.positions[position.PositionID] = positionRecord{position: position, seq: s.seq}
	return nil
}

func (s *Store) DeletePosition(_ context.Context, electionID string, positionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.positions[strings.TrimSpace(positionID)]
	if !ok || record.position.ElectionID != strings.TrimSpace(electionID) {
		return domainerrors.ErrPositionNotFound
	}
	if election := s.elections[record.position.ElectionID]; election.Status != entities.ElectionStatusPreparation {
		return domainerrors.ErrElectionLocked
	}
	delete(s.positions, record.position.PositionID)
	return nil
}

func (s *Store) GetPosition(_ context.Context, positionID string) (entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.positions[strings.TrimSpace(positionID)]
	if !ok {
		return entities.Position{}, domainerrors.ErrPositionNotFound
	}
	return record.position, nil
}

func (s *Store) ListPositions(_ context.Context, electionID string) ([]entities.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]positionRecord, 0)
	for _, record := range s.positions {
		if record.position.ElectionID == strings.TrimSpace(electionID) {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})
	items := make([]entities.Position, 0, len(records))
	for _, record := range records {
		items = append(items, record.position)
	}
	return items, nil
}

func (s *Store) CreateCandidacies(
	_ context.Context,
	candidacies []entities.Candidacy,
	events ...ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(candidacies))
	for _, candidacy := range candidacies {
		if err := s.ensureOpenLocked(candidacy.ElectionID); err != nil {
			return err
		}
		record, ok := s.positions[candidacy.PositionID]
		if !ok || record.position.ElectionID != candidacy.ElectionID {
			return domainerrors.ErrPositionNotFound
		}
		key := identityKey(candidacy.ElectionID, candidacy.PositionID, candidacy.MemberID)
		if _, dup := seen[key]; dup {
			return domainerrors.ErrDuplicateCandidacy
		}
		if _, found := s.findCandidacyLocked(candidacy.ElectionID, candidacy.PositionID, candidacy.MemberID); found {
			return domainerrors.ErrDuplicateCandidacy
		}
		seen[key] = struct{}{}
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return err
	}
	for _, candidacy := range candidacies {
		s.seq++
		s.candidacies[candidacy.CandidacyID] = candidacyRecord{candidacy: cloneCandidacy(candidacy), seq: s.seq}
	}
	return s.appendOutboxLocked(events)
}

func (s *Store) GetCandidacy(_ context.Context, candidacyID string) (entities.Candidacy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.candidacies[strings.TrimSpace(candidacyID)]
	if !ok {
		return entities.Candidacy{}, domainerrors.ErrCandidacyNotFound
	}
	return cloneCandidacy(record.candidacy), nil
}

func (s *Store) FindCandidacy(
	_ context.Context,
	electionID string,
	positionID string,
	memberID string,
) (entities.Candidacy, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidacy, found := s.findCandidacyLocked(
		strings.TrimSpace(electionID),
		strings.TrimSpace(positionID),
		strings.TrimSpace(memberID),
	)
	return candidacy, found, nil
}

func (s *Store) ListCandidaciesByElection(_ context.Context, electionID string) ([]entities.Candidacy, error) {
	electionID = strings.TrimSpace(electionID)
	return s.listCandidacies(func(candidacy entities.Candidacy) bool {
		return candidacy.ElectionID == electionID
	}), nil
}

// ListCandidaciesByMember returns every election of the member when
// electionID is empty.
func (s *Store) ListCandidaciesByMember(_ context.Context, memberID string, electionID string) ([]entities.Candidacy, error) {
	memberID = strings.TrimSpace(memberID)
	electionID = strings.TrimSpace(electionID)
	return s.listCandidacies(func(candidacy entities.Candidacy) bool {
		if candidacy.MemberID != memberID {
			return false
		}
		return electionID == "" || candidacy.ElectionID == electionID
	}), nil
}

func (s *Store) UpdateCandidacy(_ context.Context, candidacy entities.Candidacy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.candidacies[candidacy.CandidacyID]
	if !ok {
		return domainerrors.ErrCandidacyNotFound
	}
	if record.candidacy.Decided() {
		return domainerrors.ErrCandidacyDecided
	}
	if err := s.ensureOpenLocked(record.candidacy.ElectionID); err != nil {
		return err
	}
	record.candidacy.Motivation = candidacy.Motivation
	record.candidacy.Programme = candidacy.Programme
	record.candidacy.Documents = append([]string(nil), candidacy.Documents...)
	record.candidacy.UpdatedAt = candidacy.UpdatedAt
	s.candidacies[candidacy.CandidacyID] = record
	return nil
}

func (s *Store) ApplyCandidacyPositionChange(
	_ context.Context,
	change entities.CandidacyPositionChange,
	events ...ports.EventEnvelope,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureOpenLocked(change.ElectionID); err != nil {
		return err
	}
	removed := make(map[string]struct{}, len(change.Remove))
	for _, candidacyID := range change.Remove {
		record, ok := s.candidacies[candidacyID]
		if !ok || record.candidacy.MemberID != change.MemberID || record.candidacy.ElectionID != change.ElectionID {
			return domainerrors.ErrConflict
		}
		if record.candidacy.Decided() {
			return domainerrors.ErrCandidacyDecided
		}
		if s.hasVotesLocked(candidacyID) {
			return domainerrors.ErrCandidacyHasVotes
		}
		removed[candidacyID] = struct{}{}
	}
	if change.Update != nil {
		record, ok := s.candidacies[change.Update.CandidacyID]
		if !ok {
			return domainerrors.ErrCandidacyNotFound
		}
		if record.candidacy.Decided() {
			return domainerrors.ErrCandidacyDecided
		}
	}
	added := make(map[string]struct{}, len(change.Add))
	for _, candidacy := range change.Add {
		record, ok := s.positions[candidacy.PositionID]
		if !ok || record.position.ElectionID != change.ElectionID {
			return domainerrors.ErrPositionNotFound
		}
		if _, dup := added[candidacy.PositionID]; dup {
			return domainerrors.ErrDuplicateCandidacy
		}
		if existing, found := s.findCandidacyLocked(change.ElectionID, candidacy.PositionID, change.MemberID); found {
			if _, goingAway := removed[existing.CandidacyID]; !goingAway {
				return domainerrors.ErrDuplicateCandidacy
			}
		}
		added[candidacy.PositionID] = struct{}{}
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return err
	}

	for candidacyID := range removed {
		delete(s.candidacies, candidacyID)
	}
	if change.Update != nil {
		record := s.candidacies[change.Update.CandidacyID]
		record.candidacy.Motivation = change.Update.Motivation
		record.candidacy.Programme = change.Update.Programme
		record.candidacy.UpdatedAt = change.Update.UpdatedAt
		s.candidacies[change.Update.CandidacyID] = record
	}
	for _, candidacy := range change.Add {
		s.seq++
		s.candidacies[candidacy.CandidacyID] = candidacyRecord{candidacy: cloneCandidacy(candidacy), seq: s.seq}
	}
	return s.appendOutboxLocked(events)
}

func (s *Store) DecideCandidacy(_ context.Context, candidacy entities.Candidacy, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.candidacies[candidacy.CandidacyID]
	if !ok {
		return domainerrors.ErrCandidacyNotFound
	}
	if record.candidacy.Decided() {
		return domainerrors.ErrCandidacyDecided
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return err
	}
	record.candidacy.Status = candidacy.Status
	record.candidacy.ValidatedBy = candidacy.ValidatedBy
	record.candidacy.ValidatedAt = candidacy.ValidatedAt
	record.candidacy.Comments = candidacy.Comments
	record.candidacy.UpdatedAt = candidacy.UpdatedAt
	s.candidacies[candidacy.CandidacyID] = record
	return s.appendOutboxLocked(events)
}

func (s *Store) CreateVote(_ context.Context, vote entities.Vote, events ...ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureOpenLocked(vote.ElectionID); err != nil {
		return err
	}
	if _, found := s.findVoteLocked(vote.ElectionID, vote.PositionID, vote.MemberID); found {
		return domainerrors.ErrDuplicateVote
	}
	if err := s.checkOutboxLocked(events); err != nil {
		return err
	}
	s.votes[vote.VoteID] = vote
	return s.appendOutboxLocked(events)
}

func (s *Store) FindVote(_ context.Context, electionID string, positionID string, memberID string) (entities.Vote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vote, found := s.findVoteLocked(
		strings.TrimSpace(electionID),
		strings.TrimSpace(positionID),
		strings.TrimSpace(memberID),
	)
	return vote, found, nil
}

func (s *Store) ListVotesByElection(_ context.Context, electionID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.ElectionID == strings.TrimSpace(electionID) {
			items = append(items, vote)
		}
	}
	sortVotesByCreation(items)
	return items, nil
}

func (s *Store) ListVotesByMember(_ context.Context, electionID string, memberID string) ([]entities.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Vote, 0)
	for _, vote := range s.votes {
		if vote.ElectionID == strings.TrimSpace(electionID) && vote.MemberID == strings.TrimSpace(memberID) {
			items = append(items, vote)
		}
	}
	sortVotesByCreation(items)
	return items, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].seq < rows[j].seq
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.message)
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(
	_ context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.eventDedup[key]; ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.eventDedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}
	s.eventDedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

// Revalidate records the stale paths so tests and local runs can inspect them.
func (s *Store) Revalidate(_ context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revalidated = append(s.revalidated, paths...)
	return nil
}

func (s *Store) RevalidatedPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.revalidated...)
}

func (s *Store) NotifyCandidacyDecision(_ context.Context, notification ports.CandidacyNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notification)
	return nil
}

func (s *Store) Notifications() []ports.CandidacyNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.CandidacyNotification(nil), s.notifications...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) ensureOpenLocked(electionID string) error {
	election, ok := s.elections[electionID]
	if !ok || !election.AcceptsBallots() {
		return domainerrors.ErrElectionNotOpen
	}
	return nil
}

func (s *Store) findCandidacyLocked(electionID string, positionID string, memberID string) (entities.Candidacy, bool) {
	for _, record := range s.candidacies {
		candidacy := record.candidacy
		if candidacy.ElectionID == electionID && candidacy.PositionID == positionID && candidacy.MemberID == memberID {
			return cloneCandidacy(candidacy), true
		}
	}
	return entities.Candidacy{}, false
}

func (s *Store) findVoteLocked(electionID string, positionID string, memberID string) (entities.Vote, bool) {
	for _, vote := range s.votes {
		if vote.ElectionID == electionID && vote.PositionID == positionID && vote.MemberID == memberID {
			return vote, true
		}
	}
	return entities.Vote{}, false
}

func (s *Store) hasVotesLocked(candidacyID string) bool {
	for _, vote := range s.votes {
		if vote.CandidacyID != nil && *vote.CandidacyID == candidacyID {
			return true
		}
	}
	return false
}

func (s *Store) listCandidacies(keep func(entities.Candidacy) bool) []entities.Candidacy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]candidacyRecord, 0)
	for _, record := range s.candidacies {
		if keep(record.candidacy) {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].seq < records[j].seq
	})
	items := make([]entities.Candidacy, 0, len(records))
	for _, record := range records {
		items = append(items, cloneCandidacy(record.candidacy))
	}
	return items
}

// checkOutboxLocked runs before any state change so a conflicting event id
// leaves the store untouched.
func (s *Store) checkOutboxLocked(events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		if existing, ok := s.outbox[strings.TrimSpace(envelope.EventID)]; ok && !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
	}
	return nil
}

func (s *Store) appendOutboxLocked(events []ports.EventEnvelope) error {
	for _, envelope := range events {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxID := strings.TrimSpace(envelope.EventID)
		if outboxID == "" {
			outboxID = uuid.NewString()
		}
		if _, ok := s.outbox[outboxID]; ok {
			continue
		}
		createdAt := envelope.OccurredAt.UTC()
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		s.seq++
		s.outbox[outboxID] = outboxRecord{
			seq: s.seq,
			message: ports.OutboxMessage{
				OutboxID:     outboxID,
				EventType:    strings.TrimSpace(envelope.EventType),
				PartitionKey: strings.TrimSpace(envelope.PartitionKey),
				Payload:      payload,
				CreatedAt:    createdAt,
			},
		}
	}
	return nil
}

func identityKey(electionID string, positionID string, memberID string) string {
	return electionID + "|" + positionID + "|" + memberID
}

func cloneCandidacy(candidacy entities.Candidacy) entities.Candidacy {
	if candidacy.Documents != nil {
		candidacy.Documents = append([]string(nil), candidacy.Documents...)
	}
	return candidacy
}

func sortVotesByCreation(items []entities.Vote) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].VoteID < items[j].VoteID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
