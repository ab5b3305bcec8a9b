package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed contracts/*.schema.json
var contractFS embed.FS

const contractBaseURL = "https://scanmatch.local/contracts/"

var (
	compileOnce      sync.Once
	outcomeContract  *jsonschema.Schema
	runStateContract *jsonschema.Schema
	compileErr       error
)

func compileContracts() {
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{"outcome_event.schema.json", "run_state_event.schema.json"} {
		raw, err := contractFS.ReadFile("contracts/" + name)
		if err != nil {
			compileErr = fmt.Errorf("read contract %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(contractBaseURL+name, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("add contract %s: %w", name, err)
			return
		}
	}
	if outcomeContract, compileErr = compiler.Compile(contractBaseURL + "outcome_event.schema.json"); compileErr != nil {
		return
	}
	runStateContract, compileErr = compiler.Compile(contractBaseURL + "run_state_event.schema.json")
}

// ValidateOutcomeJSON checks a published outcome event against its contract.
func ValidateOutcomeJSON(raw []byte) error {
	compileOnce.Do(compileContracts)
	if compileErr != nil {
		return compileErr
	}
	return validateAgainst(outcomeContract, raw)
}

// ValidateRunStateJSON checks a published run state event against its contract.
func ValidateRunStateJSON(raw []byte) error {
	compileOnce.Do(compileContracts)
	if compileErr != nil {
		return compileErr
	}
	return validateAgainst(runStateContract, raw)
}

func validateAgainst(s *jsonschema.Schema, raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return s.Validate(payload)
}
