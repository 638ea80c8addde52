// Package config resolves livedoc's runtime configuration.
//
// Sources are merged in priority order, later sources winning:
//
//  1. Built-in defaults (port 8999, host 127.0.0.1)
//  2. Global config in $XDG_CONFIG_HOME/livedoc
//  3. Project config in the document's directory
//  4. The file named by LIVEDOC_CONFIG
//  5. LIVEDOC_* environment variables
//
// A .env file in the working directory is loaded before any of these, so it
// can also set LIVEDOC_CONFIG, LIVEDOC_DOCUMENT or XDG_CONFIG_HOME. It never
// overrides variables already set in the environment.
//
// Config files may be JSON, JSONC (comments stripped with tidwall/jsonc) or
// YAML, chosen by extension:
//
//	// livedoc.jsonc
//	{
//	  "port": 9000,
//	  "debounce": "150ms",
//	  "followReplace": true,
//	}
//
// Command-line flags are applied by the caller after Load.
package config
