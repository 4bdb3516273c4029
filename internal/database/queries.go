package database

import (
	"encoding/json"
	"time"
)

func (db *PgCollabRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgCollabRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgCollabRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

func (db *PgCollabRepository) CreateDiagram(params CreateDiagramParams) (Diagram, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO diagrams (external_id, title, content, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) "+
			"RETURNING id, external_id, title, content, owner_id, created_at, updated_at",
		params.ExternalId,
		params.Title,
		params.Content,
		params.OwnerId,
		now,
	)

	return scanDiagram(row)
}

func (db *PgCollabRepository) GetDiagramById(id int) (Diagram, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, title, content, owner_id, created_at, updated_at "+
			"FROM diagrams WHERE id = $1 LIMIT 1",
		id,
	)

	return scanDiagram(row)
}

func (db *PgCollabRepository) GetDiagramByExternalId(externalId string) (Diagram, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, title, content, owner_id, created_at, updated_at "+
			"FROM diagrams WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	return scanDiagram(row)
}

func (db *PgCollabRepository) ListDiagramsByOwner(ownerId int) ([]Diagram, error) {
	rows, err := db.conn.Query(
		"SELECT id, external_id, title, content, owner_id, created_at, updated_at "+
			"FROM diagrams WHERE owner_id = $1 ORDER BY updated_at DESC",
		ownerId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diagrams []Diagram
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, err
		}
		diagrams = append(diagrams, d)
	}

	return diagrams, rows.Err()
}

func (db *PgCollabRepository) UpdateDiagram(params UpdateDiagramParams) (Diagram, error) {
	row := db.conn.QueryRow(
		"UPDATE diagrams SET title = $2, content = $3, updated_at = $4 WHERE id = $1 "+
			"RETURNING id, external_id, title, content, owner_id, created_at, updated_at",
		params.Id,
		params.Title,
		params.Content,
		time.Now().UTC(),
	)

	return scanDiagram(row)
}

func (db *PgCollabRepository) UpdateDiagramContent(id int, content json.RawMessage) (Diagram, error) {
	row := db.conn.QueryRow(
		"UPDATE diagrams SET content = $2, updated_at = $3 WHERE id = $1 "+
			"RETURNING id, external_id, title, content, owner_id, created_at, updated_at",
		id,
		content,
		time.Now().UTC(),
	)

	return scanDiagram(row)
}

func (db *PgCollabRepository) DeleteDiagram(id int) error {
	_, err := db.conn.Exec("DELETE FROM diagrams WHERE id = $1", id)
	return err
}

func (db *PgCollabRepository) CreateInvitation(diagramId, userId int) (Invitation, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRow(
		"INSERT INTO diagram_users (diagram_id, user_id, status, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) "+
			"RETURNING id, diagram_id, user_id, status, created_at, updated_at",
		diagramId,
		userId,
		"pending",
		now,
	)

	return scanInvitation(row)
}

func (db *PgCollabRepository) UpdateInvitationStatus(id int, status string) (Invitation, error) {
	row := db.conn.QueryRow(
		"UPDATE diagram_users SET status = $2, updated_at = $3 WHERE id = $1 "+
			"RETURNING id, diagram_id, user_id, status, created_at, updated_at",
		id,
		status,
		time.Now().UTC(),
	)

	return scanInvitation(row)
}

func (db *PgCollabRepository) ListInvitationsForUser(userId int) ([]Invitation, error) {
	rows, err := db.conn.Query(
		"SELECT id, diagram_id, user_id, status, created_at, updated_at "+
			"FROM diagram_users WHERE user_id = $1 ORDER BY created_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// HasDiagramAccess reports whether a user owns the diagram or holds an
// accepted invitation to it.
func (db *PgCollabRepository) HasDiagramAccess(diagramId, userId int) bool {
	row := db.conn.QueryRow(
		"SELECT EXISTS ("+
			"SELECT 1 FROM diagrams WHERE id = $1 AND owner_id = $2 "+
			"UNION "+
			"SELECT 1 FROM diagram_users WHERE diagram_id = $1 AND user_id = $2 AND status = 'accepted'"+
			")",
		diagramId,
		userId,
	)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false
	}
	return exists
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDiagram(row rowScanner) (Diagram, error) {
	var d Diagram
	err := row.Scan(
		&d.Id,
		&d.ExternalId,
		&d.Title,
		&d.Content,
		&d.OwnerId,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func scanInvitation(row rowScanner) (Invitation, error) {
	var inv Invitation
	err := row.Scan(
		&inv.Id,
		&inv.DiagramId,
		&inv.UserId,
		&inv.Status,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}
