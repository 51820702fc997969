package main

import "github.com/o0olele/breadcrumbs-go/cmd"

func main() {
	cmd.Execute()
}
