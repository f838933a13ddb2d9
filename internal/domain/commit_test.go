package domain

import "testing"

func TestKindFromOperation(t *testing.T) {
	cases := []struct {
		op   string
		want CommitKind
	}{
		{"INSERT INTO orders VALUES (1)", KindInsert},
		{"  insert into t values (2)", KindInsert},
		{"DELETE FROM orders WHERE id = 1", KindDelete},
		{"CREATE TABLE t (id INT)", KindCreate},
		{"ALTER TABLE t ADD COLUMN x INT", KindSchema},
		{"DROP TABLE t", KindSchema},
		{"SELECT * FROM t", KindRead},
		{"PRAGMA table_info(t)", KindRead},
		{"UPDATE t SET x = 1", KindUpdate},
		{"REPLACE INTO t VALUES (1)", KindUpdate},
	}
	for _, c := range cases {
		if got := KindFromOperation(c.op); got != c.want {
			t.Fatalf("KindFromOperation(%q) = %q, quería %q", c.op, got, c.want)
		}
	}
}
