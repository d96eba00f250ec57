package main

import "contractorpay/internal/app/server"

func main() {
	server.Run()
}
