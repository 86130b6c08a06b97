package mingledb_test

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jpl-au/mingledb"
)

func Example() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	// Open or create a store
	db, err := mingledb.Open(dir, mingledb.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Store a document
	db.InsertOne("users", mingledb.D("name", "Alice", "age", 30))

	// Read it back
	doc, _ := db.FindOne("users", mingledb.Filter{"name": mingledb.Equals("Alice")})
	fmt.Println(doc)
	// Output: {"name":"Alice","age":30}
}

func ExampleDB_DefineSchema() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	db, _ := mingledb.Open(dir, mingledb.Config{})
	defer db.Close()

	db.DefineSchema("users", mingledb.Schema{
		{Field: "name", Rule: mingledb.Rule{Type: mingledb.TypeString, Required: true}},
		{Field: "email", Rule: mingledb.Rule{Type: mingledb.TypeString, Required: true, Unique: true}},
	})

	db.InsertOne("users", mingledb.D("name", "Alice", "email", "alice@example.com"))

	err := db.InsertOne("users", mingledb.D("name", "Eve", "email", "alice@example.com"))
	fmt.Println(errors.Is(err, mingledb.ErrDuplicateUniqueValue))

	err = db.InsertOne("users", mingledb.D("email", "bob@example.com"))
	fmt.Println(err)
	// Output:
	// true
	// validation: field "name": missing required field
}

func ExampleDB_Find() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	db, _ := mingledb.Open(dir, mingledb.Config{})
	defer db.Close()

	for _, name := range []string{"Alice", "Bob", "alfred"} {
		db.InsertOne("users", mingledb.D("name", name))
	}

	docs, _ := db.Find("users", mingledb.Filter{"name": mingledb.MustRegex("(?i)^al")})
	for _, d := range docs {
		fmt.Println(d)
	}
	// Output:
	// {"name":"Alice"}
	// {"name":"alfred"}
}

func ExampleParseFilter() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	db, _ := mingledb.Open(dir, mingledb.Config{})
	defer db.Close()

	for age := 10; age <= 50; age += 10 {
		db.InsertOne("people", mingledb.D("age", age))
	}

	f, err := mingledb.ParseFilter([]byte(`{"age": {"$gte": 20, "$lt": 40}}`))
	if err != nil {
		log.Fatal(err)
	}
	n, _ := db.Count("people", f)
	fmt.Println(n)
	// Output: 2
}

func ExampleDB_UpdateOne() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	db, _ := mingledb.Open(dir, mingledb.Config{})
	defer db.Close()

	db.InsertOne("users", mingledb.D("name", "Bob", "age", 17))

	updated, _ := db.UpdateOne("users",
		mingledb.Filter{"name": mingledb.Equals("Bob")},
		mingledb.D("age", 18, "city", "Lyon"))
	fmt.Println(updated)

	doc, _ := db.FindOne("users", nil)
	fmt.Println(doc)
	// Output:
	// true
	// {"name":"Bob","age":18,"city":"Lyon"}
}

func ExampleDB_Login() {
	dir, _ := os.MkdirTemp("", "mingledb-example")
	defer os.RemoveAll(dir)

	db, _ := mingledb.Open(dir, mingledb.Config{PasswordCost: 4})
	defer db.Close()

	db.Register("alice", "correct horse")

	fmt.Println(db.Login("alice", "battery staple"))
	fmt.Println(db.Login("alice", "correct horse"), db.IsAuthenticated("alice"))
	db.Logout("alice")
	fmt.Println(db.IsAuthenticated("alice"))
	// Output:
	// authentication failed
	// <nil> true
	// false
}
