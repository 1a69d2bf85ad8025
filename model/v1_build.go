package model

import (
	"fmt"
	"time"
)

type Outcome int8

const (
	OUTCOME_PENDING Outcome = 10
	OUTCOME_SUCCESS Outcome = 20
	OUTCOME_FAILURE Outcome = 30
	OUTCOME_ERROR   Outcome = 40
)

var outcomeNames = map[Outcome]string{
	OUTCOME_PENDING: "pending",
	OUTCOME_SUCCESS: "success",
	OUTCOME_FAILURE: "failure",
	OUTCOME_ERROR:   "error",
}

// String returns the commit status state GitHub uses for the outcome.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int8(o))
}

func (o Outcome) IsTerminal() bool {
	return o == OUTCOME_SUCCESS || o == OUTCOME_FAILURE || o == OUTCOME_ERROR
}

func (o Outcome) MarshalText() ([]byte, error) {
	if _, ok := outcomeNames[o]; !ok {
		return nil, fmt.Errorf("invalid outcome %d", int8(o))
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for outcome, name := range outcomeNames {
		if name == string(text) {
			*o = outcome
			return nil
		}
	}
	return fmt.Errorf("invalid outcome %q", string(text))
}

// Build is the persisted record of one pipeline run, keyed by commit.
type Build struct {
	Id          int64     `json:"id"`
	Sha         string    `json:"sha" xorm:"unique notnull"`
	Branch      string    `json:"branch" xorm:"index notnull"`
	Outcome     Outcome   `json:"outcome" xorm:"notnull"`
	Description string    `json:"description" xorm:"text"`
	CreatedAt   time.Time `json:"created_at" xorm:"created"`
	UpdatedAt   time.Time `json:"updated_at" xorm:"updated"`
}
