package exam

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

// Bank is the YAML layout of a question bank file:
//
//	questions:
//	  - q: "Integrity means:"
//	    opts: [...]
//	    ans: 0
type Bank struct {
	Questions []Question `yaml:"questions"`
}

// DecodeBank reads a YAML question bank. Questions are validated when the
// bank is saved.
func DecodeBank(r io.Reader) ([]Question, error) {
	var bank Bank
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bank); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("invalid question bank: %v", err))
	}
	if len(bank.Questions) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "question bank is empty")
	}
	return bank.Questions, nil
}
