// Package config provides configuration structures and utilities for
// contrastscan: renderer and viewport selection, report output options,
// the scan history location, and per-site settings loaded from a
// .contrastscan YAML file.
package config
