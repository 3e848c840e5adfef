package main

import "github.com/vignesh-goutham/bondstress/cmd/bondstress"

func main() {
	bondstress.Execute()
}
