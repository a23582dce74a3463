// Package main hosts the intake CLI entrypoint and command graph.
//
// The Cobra-based command tree covers interactive batch processing with
// review prompts, a watch mode for unattended folders, outcome history, and
// configuration scaffolding. It centralizes configuration resolution and
// structured logging setup so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
