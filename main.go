package main

import "github.com/derickschaefer/timeseries/cmd"

func main() {
	cmd.Execute()
}
