//go:build example

// Package main demonstrates deriving queries from method names with
// go-repository.
//
// This example shows how to:
// 1. Register entity structs and inspect the derived metadata
// 2. Parse a derived query method name into a predicate tree
// 3. Bind invocation arguments, paging and sorting
// 4. Translate the bound query into SQL inside a storage adapter
package main

import (
	"fmt"
	"log"
	"reflect"
	"strings"

	repository "github.com/nlstn/go-repository"
)

type Customer struct {
	ID        string `repo:"id,generate:uuid"`
	Firstname string
	Lastname  string
	Age       int
}

func main() {
	registry := repository.NewRegistry()

	// Example 1: Entity metadata
	// ==========================

	entity, err := registry.RegisterEntity(Customer{})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("entity %s maps to table %s\n", entity.Name(), entity.TableName())
	entity.DoWithProperties(func(property *repository.PersistentProperty) {
		fmt.Printf("  %s -> column %s\n", property.Name(), property.ColumnName())
	})

	// Example 2: Deriving a query from a method name
	// ==============================================

	method, err := registry.ParseQueryMethod(Customer{},
		"FindByLastnameAndAgeGreaterThanOrderByFirstnameAsc",
		[]repository.ParameterSpec{
			{Type: reflect.TypeOf("")},
			{Type: reflect.TypeOf(0)},
			{Type: reflect.TypeOf(repository.Pageable{})},
		})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("predicate: %s\n", method.Tree())

	// Example 3: Binding invocation arguments
	// =======================================

	bound, err := method.Bind("Smith", 21, repository.PageRequest(0, 20))
	if err != nil {
		log.Fatal(err)
	}

	// Example 4: A minimal adapter translating the bound query
	// ========================================================

	var clauses []string
	var args []interface{}
	for _, group := range bound.Groups {
		for _, condition := range group {
			column := entity.PersistentProperty(condition.Property).ColumnName()
			switch condition.Operator.Name() {
			case "GREATER_THAN":
				clauses = append(clauses, column+" > ?")
			default:
				clauses = append(clauses, column+" = ?")
			}
			args = append(args, condition.Values...)
		}
	}

	fmt.Printf("SELECT * FROM %s WHERE %s -- args %v\n",
		entity.TableName(), strings.Join(clauses, " AND "), args)
}
