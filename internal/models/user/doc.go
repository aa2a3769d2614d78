// Package user contains the implementation of interacting with the MongoDB users collection.
// The UserManager struct is responsible for interacting with the MongoDB users collection. It is CRUD for the user collection.
// MemoryUserManager offers the same operations on an in-process slice, for local runs and tests.
// The User struct is used to represent a user. Passwords are stored as bcrypt hashes and never serialized to JSON.
package user
