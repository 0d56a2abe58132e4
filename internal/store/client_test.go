package store

import (
	"testing"

	"github.com/ten99/ten99/internal/model"
)

func TestClientCRUD(t *testing.T) {
	db := setupDB(t)
	cs := NewClientStore(db)
	u := createTestUser(t, db, "alice@example.com")

	c, err := cs.Create(model.Client{UserID: u.ID, Name: "Acme Corp", Email: "ap@acme.example"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 || c.Name != "Acme Corp" {
		t.Fatalf("created = %+v", c)
	}

	cs.Create(model.Client{UserID: u.ID, Name: "beta llc"})
	list, err := cs.List(u.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Acme Corp" {
		t.Errorf("list = %+v", list)
	}

	c.Phone = "555-0100"
	updated, err := cs.Update(*c)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "555-0100" {
		t.Errorf("phone = %q", updated.Phone)
	}

	if err := cs.Delete(u.ID, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := cs.GetByID(u.ID, c.ID); got != nil {
		t.Error("expected client to be deleted")
	}
}

func TestContactListByClient(t *testing.T) {
	db := setupDB(t)
	clients := NewClientStore(db)
	contacts := NewContactStore(db)
	u := createTestUser(t, db, "alice@example.com")

	acme, _ := clients.Create(model.Client{UserID: u.ID, Name: "Acme Corp"})
	if _, err := contacts.Create(model.Contact{UserID: u.ID, ClientID: &acme.ID, Name: "Wile", Role: "Site lead"}); err != nil {
		t.Fatalf("create contact: %v", err)
	}
	if _, err := contacts.Create(model.Contact{UserID: u.ID, Name: "Roadrunner"}); err != nil {
		t.Fatalf("create contact: %v", err)
	}

	all, err := contacts.List(u.ID, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}

	forAcme, err := contacts.List(u.ID, &acme.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(forAcme) != 1 || forAcme[0].Name != "Wile" {
		t.Errorf("for acme = %+v", forAcme)
	}

	// Deleting the client unlinks its contacts rather than removing them.
	if err := clients.Delete(u.ID, acme.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}
	c, _ := contacts.GetByID(u.ID, forAcme[0].ID)
	if c == nil {
		t.Fatal("expected contact to survive client deletion")
	}
	if c.ClientID != nil {
		t.Errorf("client_id = %d, want nil", *c.ClientID)
	}
}

func TestJobFileAttachments(t *testing.T) {
	db := setupDB(t)
	js := NewJobFileStore(db)
	u := createTestUser(t, db, "alice@example.com")

	jf, err := js.Create(model.JobFile{UserID: u.ID, Title: "Kitchen remodel"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if jf.Status != model.JobFileOpen {
		t.Errorf("status = %q, want open", jf.Status)
	}

	att, err := js.AddAttachment(model.Attachment{
		JobFileID:   jf.ID,
		UserID:      u.ID,
		FileName:    "plan.pdf",
		ContentType: "application/pdf",
		Size:        1024,
		BlobKey:     "users/1/jobfiles/1/abc-plan.pdf",
	})
	if err != nil {
		t.Fatalf("add attachment: %v", err)
	}
	if att.BlobKey != "users/1/jobfiles/1/abc-plan.pdf" || att.Size != 1024 {
		t.Errorf("attachment = %+v", att)
	}

	atts, err := js.ListAttachments(u.ID, jf.ID)
	if err != nil {
		t.Fatalf("list attachments: %v", err)
	}
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}

	if err := js.Delete(u.ID, jf.ID); err != nil {
		t.Fatalf("delete job file: %v", err)
	}
	if got, _ := js.GetAttachment(u.ID, att.ID); got != nil {
		t.Error("expected attachment rows to cascade with the job file")
	}
}
