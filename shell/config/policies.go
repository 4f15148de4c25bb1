package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/stacksys/circulation-tracker-go/core"
)

// ErrLoadingPoliciesFailed is returned when the policy configuration cannot
// be read or parsed.
var ErrLoadingPoliciesFailed = errors.New("loading borrowing policies failed")

// embeddedPolicies holds the default borrowing policies baked into the
// binary, so a deployment without any configuration still circulates items
// under sane rules.
//
//go:embed policies.yaml
var embeddedPolicies []byte

// policyFile is the yaml shape of a borrowing-policy configuration.
type policyFile struct {
	Default   policyEntry   `yaml:"default"`
	ItemTypes []policyEntry `yaml:"itemTypes"`
}

// policyEntry is one policy in the yaml file. Loan periods are whole days.
type policyEntry struct {
	ItemType           string `yaml:"itemType"`
	MaxConcurrentLoans int    `yaml:"maxConcurrentLoans"`
	LoanPeriodDays     int    `yaml:"loanPeriodDays"`
	AllowRenewal       bool   `yaml:"allowRenewal"`
	MaxRenewals        int    `yaml:"maxRenewals"`
}

// LoadPolicySet builds the borrowing PolicySet from configuration.
// POLICY_CONFIG_PATH names a yaml file to load; without it the embedded
// default policies apply. The set is validated on load and immutable
// afterwards.
func LoadPolicySet() (core.PolicySet, error) {
	raw := embeddedPolicies

	if path := os.Getenv("POLICY_CONFIG_PATH"); path != "" {
		fileContent, err := os.ReadFile(path)
		if err != nil {
			return core.PolicySet{}, errors.Join(ErrLoadingPoliciesFailed, err)
		}

		raw = fileContent
	}

	return parsePolicySet(raw)
}

func parsePolicySet(raw []byte) (core.PolicySet, error) {
	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return core.PolicySet{}, errors.Join(ErrLoadingPoliciesFailed, err)
	}

	policies := make([]core.BorrowingPolicy, 0, len(file.ItemTypes))
	for _, entry := range file.ItemTypes {
		policies = append(policies, borrowingPolicyFrom(entry))
	}

	policySet, err := core.BuildPolicySet(borrowingPolicyFrom(file.Default), policies...)
	if err != nil {
		return core.PolicySet{}, errors.Join(ErrLoadingPoliciesFailed, err)
	}

	return policySet, nil
}

func borrowingPolicyFrom(entry policyEntry) core.BorrowingPolicy {
	return core.BorrowingPolicy{
		ItemType:           entry.ItemType,
		MaxConcurrentLoans: entry.MaxConcurrentLoans,
		LoanPeriod:         time.Duration(entry.LoanPeriodDays) * 24 * time.Hour,
		AllowRenewal:       entry.AllowRenewal,
		MaxRenewals:        entry.MaxRenewals,
	}
}

// MustLoadPolicySet is LoadPolicySet for process startup paths that cannot
// continue without policies.
func MustLoadPolicySet() core.PolicySet {
	policySet, err := LoadPolicySet()
	if err != nil {
		panic(fmt.Sprintf("borrowing policies are unusable: %v", err))
	}

	return policySet
}
