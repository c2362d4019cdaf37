// Copyright 2026 The Lodestone Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/lodestone-data/lodestone/ffi"
	"github.com/lodestone-data/lodestone/lib/version"
)

// variantDescription is the serialized form of one variant table
// entry. Shape codes are emitted by name, not number: generated
// bindings match on names, and the numeric codes stay private to the
// two codec implementations.
type variantDescription struct {
	Name    string   `json:"name" yaml:"name"`
	Tag     int32    `json:"tag" yaml:"tag"`
	Payload []string `json:"payload" yaml:"payload"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet("lodestone-bindgen", pflag.ContinueOnError)
	format := flags.StringP("format", "f", "json", "output format: json or yaml")
	output := flags.StringP("output", "o", "", "output file (default stdout)")
	showVersion := flags.Bool("version", false, "print version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Printf("lodestone-bindgen %s\n", version.Info())
		return nil
	}

	table := ffi.VariantTable()
	descriptions := make([]variantDescription, 0, len(table))
	for _, variant := range table {
		payload := make([]string, 0, len(variant.Payload))
		for _, code := range variant.Payload {
			payload = append(payload, code.String())
		}
		descriptions = append(descriptions, variantDescription{
			Name:    variant.Name,
			Tag:     variant.Tag,
			Payload: payload,
		})
	}

	var rendered []byte
	var err error
	switch *format {
	case "json":
		rendered, err = json.MarshalIndent(descriptions, "", "  ")
		rendered = append(rendered, '\n')
	case "yaml":
		rendered, err = yaml.Marshal(descriptions)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", *format)
	}
	if err != nil {
		return fmt.Errorf("render variant table: %w", err)
	}

	if *output == "" {
		_, err = os.Stdout.Write(rendered)
		return err
	}
	if err := os.WriteFile(*output, rendered, 0644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	return nil
}
