// Package services contains the implementation of all services used by the web server.
//
// The services are responsible for interacting with the database and performing anything that is not strictly HTTP-related.
// The services are injected into the web server, and are used to handle requests dispatched by it.
//
// Current services include:
//   - UserService:
//     Is the main handler for dispatched http requests. It registers, authenticates, lists, fetches, updates
//     and deletes users through a UserStore (MongoDB or in-memory).
//   - EventPublisher:
//     Announces user lifecycle changes (created, updated, deleted). AMQPEventPublisher sends them to an
//     ampq 0.9.1 topic exchange; NopEventPublisher drops them when no broker is configured.
package services
