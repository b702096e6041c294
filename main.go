// The main package for the siteauditor executable.
package main

import (
	"github.com/JakeFAU/realtime-site-auditor/cmd"
)

func main() {
	cmd.Execute()
}
