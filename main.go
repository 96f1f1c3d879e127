package main

import "creatorChallengeAPI/cmd"

func main() {
	cmd.Execute()
}
