package web

import "embed"

// StaticFS embeds the dashboard UI (html/css/js).
//
//go:embed static/*
var StaticFS embed.FS
