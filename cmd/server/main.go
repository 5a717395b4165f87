package main

import "arena/internal/server"

func main() {
	server.StartGinServer()
}
