package main

import "venuebot/cmd"

func main() {
	cmd.Execute()
}
