// Package configs provides the embedded configuration template for
// expertscout. The template is embedded at build time so 'expertscout
// config init' works in every distribution, source builds included.
package configs

import _ "embed"

// ConfigTemplate is the annotated starter config written by
// 'expertscout config init' as .expertscout.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
