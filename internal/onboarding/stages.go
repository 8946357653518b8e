package onboarding

import (
	"fmt"
	"strconv"
	"strings"

	"brokerage/internal/document"
	"brokerage/internal/staging"
	dErrors "brokerage/pkg/domain-errors"
)

// Stage numbers a registration screen. Stage 1 mints the identity; finalize
// is not a stage of its own.
type Stage int

const (
	StageIdentity           Stage = 1
	StageBasicProfile       Stage = 2
	StagePersonalDetails    Stage = 3
	StageDocuments          Stage = 4
	StageBankDetails        Stage = 5
	StageNominee            Stage = 6
	StageTradingPreferences Stage = 7
)

type stageSpec struct {
	key          staging.StageKey
	writeThrough bool
	required     []string
}

var stageSpecs = map[Stage]stageSpec{
	StageIdentity:           {key: "identity"},
	StageBasicProfile:       {key: "basic_profile", writeThrough: true, required: []string{"first_name"}},
	StagePersonalDetails:    {key: "personal_details", writeThrough: true},
	StageDocuments:          {key: "documents"},
	StageBankDetails:        {key: "bank_details", required: []string{"account_number"}},
	StageNominee:            {key: "nominee"},
	StageTradingPreferences: {key: "trading_preferences"},
}

// stagedStages are merged by finalize, in this order.
var stagedStages = []Stage{
	StageBasicProfile,
	StagePersonalDetails,
	StageDocuments,
	StageBankDetails,
	StageNominee,
	StageTradingPreferences,
}

// ParseStage accepts a stage number ("5") or key ("bank_details").
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if _, ok := stageSpecs[Stage(n)]; ok {
			return Stage(n), nil
		}
	}
	for stage, spec := range stageSpecs {
		if string(spec.key) == s {
			return stage, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown stage %q", s))
}

// Key is the staging key for the stage's fragment.
func (s Stage) Key() staging.StageKey {
	return stageSpecs[s].key
}

func (s Stage) String() string {
	if spec, ok := stageSpecs[s]; ok {
		return string(spec.key)
	}
	return "stage_" + strconv.Itoa(int(s))
}

// documentRule says where a document role is staged and whether the pipeline
// can continue without it.
type documentRule struct {
	stage     Stage
	mandatory bool
}

var documentRules = map[document.Role]documentRule{
	document.RolePrimaryIdentity: {stage: StageDocuments, mandatory: true},
	document.RoleAddressProof:    {stage: StageDocuments},
	document.RolePhoto:           {stage: StageDocuments},
	document.RoleBankStatement:   {stage: StageBankDetails},
}

// documentKeyPrefix marks staged document references. Finalize leaves them
// out of the profile; the KYC record is their durable home.
const documentKeyPrefix = "document."

func documentKey(role document.Role) string {
	return documentKeyPrefix + role.String()
}

func isDocumentKey(key string) bool {
	return strings.HasPrefix(key, documentKeyPrefix)
}
