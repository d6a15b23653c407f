// Riskgraph - relationship-graph insight and idea prioritization engine.
//
// Riskgraph turns tagged case edge lists into graph insight reports
// and ranks candidate ideas by a weighted priority score.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/riskgraph/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
