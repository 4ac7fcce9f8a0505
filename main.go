package main

import "github.com/frahmantamala/company-authz/cmd"

func main() {
	cmd.Execute()
}
