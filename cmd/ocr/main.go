package main

import "github.com/quillscan/quillscan/cmd/ocr/cmd"

func main() {
	cmd.Execute()
}
