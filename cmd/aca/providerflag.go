package main

import (
	"github.com/spf13/pflag"

	"github.com/aca-dev/aca/internal/llm"
)

// providerTypeValue is a pflag.Value that accepts provider names and aliases.
type providerTypeValue struct {
	typ llm.ProviderType
}

var _ pflag.Value = (*providerTypeValue)(nil)

func (v *providerTypeValue) String() string { return string(v.typ) }

func (v *providerTypeValue) Set(s string) error {
	t, err := llm.ParseProviderType(s)
	if err != nil {
		return err
	}
	v.typ = t
	return nil
}

func (v *providerTypeValue) Type() string { return "provider" }
