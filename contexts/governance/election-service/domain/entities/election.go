package entities

import "time"

type ElectionStatus string

const (
	ElectionStatusPreparation ElectionStatus = "PREPARATION"
	ElectionStatusOpen        ElectionStatus = "OUVERTE"
	ElectionStatusClosed      ElectionStatus = "CLOTUREE"
	ElectionStatusCancelled   ElectionStatus = "ANNULEE"
)

type MajorityRule string

const (
	MajorityRuleAbsolute  MajorityRule = "ABSOLUTE"
	MajorityRuleRelative  MajorityRule = "RELATIVE"
	MajorityRuleTwoThirds MajorityRule = "TWO_THIRDS"
)

func (r MajorityRule) Valid() bool {
	switch r {
	case MajorityRuleAbsolute, MajorityRuleRelative, MajorityRuleTwoThirds:
		return true
	default:
		return false
	}
}

// Election is one voting event. QuorumPercent and MajorityRule are recorded
// for reporting only; nothing in the module turns them into an outcome.
type Election struct {
	ElectionID        string
	Title             string
	Description       string
	OpensAt           time.Time
	ClosesAt          time.Time
	BallotAt          time.Time
	CandidacyClosesAt *time.Time
	QuorumPercent     float64
	MajorityRule      MajorityRule
	Status            ElectionStatus
	DefaultSeats      int
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// AcceptsBallots reports whether candidacies and votes may be written.
func (e Election) AcceptsBallots() bool {
	return e.Status == ElectionStatusOpen
}

type PositionType string

const (
	PositionTypePresident        PositionType = "PRESIDENT"
	PositionTypeVicePresident    PositionType = "VICE_PRESIDENT"
	PositionTypeSecretaryGeneral PositionType = "SECRETAIRE_GENERAL"
	PositionTypeTreasurer        PositionType = "TRESORIER"
	PositionTypeAuditor          PositionType = "COMMISSAIRE_AUX_COMPTES"
	PositionTypeBoardMember      PositionType = "MEMBRE_BUREAU"
	PositionTypeOther            PositionType = "AUTRE"
)

// PositionPreset is the default definition used when an election is created
// from a list of position types.
type PositionPreset struct {
	Title         string
	Description   string
	Mandates      int
	MandateMonths int
	Eligibility   string
}

var positionPresets = map[PositionType]PositionPreset{
	PositionTypePresident: {
		Title:         "Président",
		Description:   "Représente l'association et préside le bureau.",
		Mandates:      1,
		MandateMonths: 24,
		Eligibility:   "Membre à jour de cotisation depuis au moins un an.",
	},
	PositionTypeVicePresident: {
		Title:         "Vice-président",
		Description:   "Assiste le président et le remplace en cas d'empêchement.",
		Mandates:      1,
		MandateMonths: 24,
		Eligibility:   "Membre à jour de cotisation.",
	},
	PositionTypeSecretaryGeneral: {
		Title:         "Secrétaire général",
		Description:   "Tient les registres et rédige les procès-verbaux.",
		Mandates:      1,
		MandateMonths: 24,
		Eligibility:   "Membre à jour de cotisation.",
	},
	PositionTypeTreasurer: {
		Title:         "Trésorier",
		Description:   "Gère les finances et présente le bilan annuel.",
		Mandates:      1,
		MandateMonths: 24,
		Eligibility:   "Membre à jour de cotisation.",
	},
	PositionTypeAuditor: {
		Title:         "Commissaire aux comptes",
		Description:   "Contrôle la tenue des comptes.",
		Mandates:      2,
		MandateMonths: 12,
		Eligibility:   "Membre non élu au bureau.",
	},
	PositionTypeBoardMember: {
		Title:         "Membre du bureau",
		Description:   "Participe aux décisions du bureau.",
		Mandates:      3,
		MandateMonths: 24,
		Eligibility:   "Membre à jour de cotisation.",
	},
	PositionTypeOther: {
		Title:         "Autre poste",
		Mandates:      1,
		MandateMonths: 12,
	},
}

// Preset returns the default definition for a position type.
func (t PositionType) Preset() (PositionPreset, bool) {
	preset, ok := positionPresets[t]
	return preset, ok
}

// Position is one seat contested within an election.
type Position struct {
	PositionID    string
	ElectionID    string
	Type          PositionType
	Title         string
	Description   string
	Mandates      int
	MandateMonths int
	Eligibility   string
	CreatedAt     time.Time
}
