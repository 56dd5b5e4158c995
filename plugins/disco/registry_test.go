package disco

import "testing"

func TestRegistryLookupMiss(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	if _, ok := r.Lookup("lounge@conference.example.com"); ok {
		t.Error("Lookup for unregistered entity should report false")
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	p := NewStaticProvider([]Identity{{Category: "conference", Type: "text"}}, nil)
	r.Register("lounge@conference.example.com", p)

	got, ok := r.Lookup("lounge@conference.example.com")
	if !ok {
		t.Fatal("Lookup should find the registered provider")
	}
	info := got.Info("")
	if len(info.Identities) != 1 || info.Identities[0].Category != "conference" {
		t.Errorf("Info = %+v, want conference identity", info)
	}
}

func TestStaticProviderAddRemoveItem(t *testing.T) {
	t.Parallel()
	p := NewStaticProvider(nil, nil)
	p.AddItem(Item{JID: "lounge@conference.example.com"})
	p.AddItem(Item{JID: "lobby@conference.example.com"})

	if n := len(p.Items("").Items); n != 2 {
		t.Fatalf("Items = %d, want 2", n)
	}
	p.RemoveItem("lounge@conference.example.com")
	items := p.Items("").Items
	if len(items) != 1 || items[0].JID != "lobby@conference.example.com" {
		t.Errorf("Items after removal = %+v, want only lobby", items)
	}
}

func TestProviderFuncDefaultsEmptyItems(t *testing.T) {
	t.Parallel()
	p := ProviderFunc{InfoFunc: func(string) InfoQuery { return InfoQuery{} }}
	if items := p.Items("").Items; items != nil {
		t.Errorf("Items = %v, want nil default", items)
	}
}
