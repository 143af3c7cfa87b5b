package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
)

func header(text string) {
	line := strings.Repeat("=", 60)
	green.Printf("\n%s\n%s\n%s\n\n", line, text, line)
}

func success(format string, args ...any) {
	green.Printf("  → %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  → %s\n", fmt.Sprintf(format, args...))
}

func warning(format string, args ...any) {
	yellow.Printf("  ⚠ %s\n", fmt.Sprintf(format, args...))
}

func printError(text string) {
	red.Printf("Error: %s\n", text)
}

func row(columns ...string) {
	fmt.Println("  " + strings.Join(columns, "  "))
}

func dim(text string) string {
	return faint.Sprint(text)
}
