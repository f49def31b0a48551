package main

import "github.com/frahmantamala/ad-user-manager/cmd"

func main() {
	cmd.Execute()
}
