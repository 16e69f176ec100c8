package bounty

import (
	"fmt"
	"strconv"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// The bounty board's candidate schema is not stable: the same logical field
// arrives under different names depending on backend version. Each logical
// attribute has an ordered alias list, tried in order, kept here so that
// remote churn is isolated to this file.
var (
	candidateIDAliases = []string{"id", "candidateId", "candidate_id"}
	walletAliases      = []string{"wallet", "walletAddress", "wallet_address", "agentWallet", "agent_wallet", "providerAddress", "provider_address", "address"}
	offeringAliases    = []string{"offering", "offeringName", "offering_name", "service", "serviceName", "service_name"}
	schemaAliases      = []string{"requirementSchema", "requirement_schema", "requirements", "schema"}
)

func stringField(c models.Candidate, aliases []string) (string, bool) {
	for _, key := range aliases {
		v, ok := c[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s, true
			}
		case float64:
			// JSON numbers decode as float64; ids are integral in practice.
			return strconv.FormatInt(int64(s), 10), true
		}
	}
	return "", false
}

func mapField(c models.Candidate, aliases []string) (map[string]any, bool) {
	for _, key := range aliases {
		if m, ok := c[key].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

// CandidateID extracts the candidate's id, or "" when absent.
func CandidateID(c models.Candidate) string {
	id, _ := stringField(c, candidateIDAliases)
	return id
}

// CandidateWallet extracts the candidate agent's wallet address.
func CandidateWallet(c models.Candidate) (string, error) {
	w, ok := stringField(c, walletAliases)
	if !ok {
		return "", fmt.Errorf("candidate %s has no wallet address under any known field name", CandidateID(c))
	}
	return w, nil
}

// CandidateOffering extracts the offering name the candidate proposes to serve.
func CandidateOffering(c models.Candidate) (string, error) {
	o, ok := stringField(c, offeringAliases)
	if !ok {
		return "", fmt.Errorf("candidate %s has no offering name under any known field name", CandidateID(c))
	}
	return o, nil
}

// CandidateRequiredFields returns the required buyer-supplied field names from
// the candidate's requirement schema, if it carries one.
func CandidateRequiredFields(c models.Candidate) []string {
	schema, ok := mapField(c, schemaAliases)
	if !ok {
		return nil
	}
	raw, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
