package main

import "tourism-booking/cmd"

func main() {
	cmd.Execute()
}
