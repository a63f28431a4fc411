package main

import (
	"fmt"

	"github.com/gamepulse/admin-sync-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
