package core

import "testing"

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestCategoryValidate(t *testing.T) {
	good := Category{AccountID: 1, Name: "Groceries"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Category{
		{AccountID: 1, Name: ""},
		{AccountID: 1, Name: "   "},
		{AccountID: 0, Name: "Groceries"},
	}
	for i, c := range bads {
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestOutcomeValidate(t *testing.T) {
	good := Outcome{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 100}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Outcome{
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: 0}},
		{AccountID: 1, CategoryID: 2, Amount: Money{Cents: -1}},
		{AccountID: 0, CategoryID: 2, Amount: Money{Cents: 100}},
		{AccountID: 1, CategoryID: 0, Amount: Money{Cents: 100}},
	}
	for i, o := range bads {
		if err := o.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestAccountValidate(t *testing.T) {
	if err := (Account{Username: "alice"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Account{Username: " "}).Validate(); err == nil {
		t.Fatalf("expected error for blank username")
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 150}
	b := Money{Cents: 70}
	if got := a.Add(b).Cents; got != 220 {
		t.Fatalf("add: expected 220, got %d", got)
	}
	if got := a.Sub(b).Cents; got != 80 {
		t.Fatalf("sub: expected 80, got %d", got)
	}
}
