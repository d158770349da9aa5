package classifier

import (
	"sort"
	"strings"
	"time"

	"github.com/finleaf/cashflow-forecast/internal/models"
)

// Strategy is one link in the classification fallback chain. Ok is false
// when the strategy has no opinion and the next strategy should be
// consulted. Strategies never return errors: an account outside every band
// is a normal case, handled by the terminal GL-default strategy.
type Strategy interface {
	Name() string
	Classify(tx models.Transaction, in Inputs) (models.ClassificationResult, bool)
}

// Inputs is the read-only per-render snapshot every strategy sees.
type Inputs struct {
	Chart       models.ChartOfAccounts
	PolicyRules []models.PolicyRule
	Mappings    map[string]models.LearnedMapping // keyed by vendor_normalized
	AsOf        time.Time
}

// policyRuleStrategy applies the external rule engine's top-ranked
// suggestion, matched by vendor and description substring patterns.
type policyRuleStrategy struct{}

func (policyRuleStrategy) Name() string { return "policy_rule" }

func (policyRuleStrategy) Classify(tx models.Transaction, in Inputs) (models.ClassificationResult, bool) {
	rules := make([]models.PolicyRule, len(in.PolicyRules))
	copy(rules, in.PolicyRules)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })

	vendor := strings.ToLower(tx.VendorNormalized)
	desc := strings.ToLower(tx.VendorRaw)
	for _, rule := range rules {
		if !policyRuleMatches(rule, vendor, desc) {
			continue
		}
		return models.ClassificationResult{
			TransactionID:  tx.ID,
			Category:       rule.Category,
			GLRangeMatched: rule.GLRange,
			Confidence:     rule.Confidence,
			RuleSource:     models.RuleSourcePolicyRule,
		}, true
	}
	return models.ClassificationResult{}, false
}

func policyRuleMatches(rule models.PolicyRule, vendor, desc string) bool {
	for _, p := range rule.VendorPatterns {
		if p != "" && strings.Contains(vendor, strings.ToLower(p)) {
			return true
		}
	}
	if rule.DescriptionPattern != "" && strings.Contains(desc, strings.ToLower(rule.DescriptionPattern)) {
		return true
	}
	return false
}

// learnedMappingStrategy applies a client's recorded vendor corrections. The
// override's GL account is resolved through the chart so the category always
// reflects the band structure.
type learnedMappingStrategy struct{}

// Confidence on a learned mapping decays toward this floor once the
// correction goes 180 days without reconfirmation, so stale overrides stop
// dominating fresher signals.
const (
	decayFloor     = 0.5
	decayGraceDays = 180
	decayStepDays  = 30
	decayPerStep   = 0.05
)

func (learnedMappingStrategy) Name() string { return "learned_mapping" }

func (learnedMappingStrategy) Classify(tx models.Transaction, in Inputs) (models.ClassificationResult, bool) {
	mapping, ok := in.Mappings[tx.VendorNormalized]
	if !ok {
		return models.ClassificationResult{}, false
	}
	account, ok := models.ParseGLAccount(mapping.GLAccountOverride)
	if !ok {
		return models.ClassificationResult{}, false
	}
	band, ok := in.Chart.BandFor(account)
	if !ok {
		return models.ClassificationResult{}, false
	}
	return models.ClassificationResult{
		TransactionID:  tx.ID,
		Category:       band.Category,
		GLRangeMatched: band.Label(),
		Confidence:     decayedConfidence(mapping, in.AsOf),
		RuleSource:     models.RuleSourceVendorNormalization,
	}, true
}

// decayedConfidence returns the mapping's confidence reduced by decayPerStep
// for every decayStepDays elapsed past the grace period, floored at
// decayFloor.
func decayedConfidence(m models.LearnedMapping, asOf time.Time) float64 {
	age := asOf.Sub(m.LastCorrectedAt)
	grace := time.Duration(decayGraceDays) * 24 * time.Hour
	if age <= grace {
		return m.Confidence
	}
	steps := float64((age - grace) / (time.Duration(decayStepDays) * 24 * time.Hour))
	decayed := m.Confidence - decayPerStep*steps
	if decayed < decayFloor {
		return decayFloor
	}
	return decayed
}

// glDefaultStrategy is the terminal strategy: map the transaction's GL
// account into the universal bands. It always produces a result; accounts
// outside every band classify as unclassified with low confidence.
type glDefaultStrategy struct{}

// Default confidences for band-derived classifications.
const (
	bandMatchConfidence    = 0.7
	unclassifiedConfidence = 0.3
)

func (glDefaultStrategy) Name() string { return "gl_default" }

func (glDefaultStrategy) Classify(tx models.Transaction, in Inputs) (models.ClassificationResult, bool) {
	account, ok := models.ParseGLAccount(tx.GLAccount)
	if ok {
		if band, found := in.Chart.BandFor(account); found {
			return models.ClassificationResult{
				TransactionID:  tx.ID,
				Category:       band.Category,
				GLRangeMatched: band.Label(),
				Confidence:     bandMatchConfidence,
				RuleSource:     models.RuleSourceGLDefault,
			}, true
		}
	}
	return models.ClassificationResult{
		TransactionID: tx.ID,
		Category:      models.CategoryUnclassified,
		Confidence:    unclassifiedConfidence,
		RuleSource:    models.RuleSourceGLDefault,
	}, true
}
