package main

import (
	"fmt"

	"github.com/huzilerz/session-core/cmd"

	_ "github.com/huzilerz/session-core/cmd/agent"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
