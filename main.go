package main

import "github.com/frahmantamala/helpdesk-access/cmd"

func main() {
	cmd.Execute()
}
