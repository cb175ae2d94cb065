package cmd

import "fmt"

// printVersionInfo displays version information for --version.
func printVersionInfo() {
	fmt.Printf("wavechat v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
}
