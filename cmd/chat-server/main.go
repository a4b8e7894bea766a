// Package main Hybrid RAG Chat Server
//
//	@title			Hybrid RAG Chat API
//	@version		1.0
//	@description	Retrieval-augmented chat over uploaded documents with selectable inference backends
//
//	@contact.name	API Support
//
//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html
//
//	@host		localhost:8080
//	@BasePath	/
package main

import (
	"log"

	"github.com/joho/godotenv"

	_ "hybrid-rag/docs" // swagger definitions
	"hybrid-rag/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("Starting chat server...")
	srv := server.NewServer()
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
