package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateTable(t *testing.T) {
	sql := CreateTable("users").
		Column("id", "bigint unsigned NOT NULL AUTO_INCREMENT").
		Column("email", "varchar(255) NOT NULL").
		Column("created_at", "datetime NOT NULL").
		PrimaryKey("id").
		Unique("uniq_email", "email").
		Index("idx_created", "created_at").
		Engine("InnoDB").
		Charset("utf8mb4").
		SQL()

	assert.Contains(t, sql, "CREATE TABLE `users`")
	assert.Contains(t, sql, "`id` bigint unsigned NOT NULL AUTO_INCREMENT")
	assert.Contains(t, sql, "PRIMARY KEY (`id`)")
	assert.Contains(t, sql, "UNIQUE KEY `uniq_email` (`email`)")
	assert.Contains(t, sql, "INDEX `idx_created` (`created_at`)")
	assert.Contains(t, sql, "ENGINE=InnoDB")
	assert.Contains(t, sql, "DEFAULT CHARSET=utf8mb4")
}

func TestCreateTable_ForeignKey(t *testing.T) {
	sql := CreateTable("orders").
		Column("id", "bigint unsigned NOT NULL").
		Column("user_id", "bigint unsigned NOT NULL").
		PrimaryKey("id").
		ForeignKey("fk_orders_user", "user_id", "users", "id").
		SQL()

	assert.Contains(t, sql, "CONSTRAINT `fk_orders_user` FOREIGN KEY (`user_id`) REFERENCES `users` (`id`)")
}

func TestStatementHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{
			name: "add column",
			got:  AddColumn("t", "x", "int NOT NULL DEFAULT 0"),
			want: "ALTER TABLE `t` ADD COLUMN `x` int NOT NULL DEFAULT 0",
		},
		{
			name: "drop column",
			got:  DropColumn("t", "x"),
			want: "ALTER TABLE `t` DROP COLUMN `x`",
		},
		{
			name: "modify column",
			got:  ModifyColumn("t", "x", "bigint NOT NULL"),
			want: "ALTER TABLE `t` MODIFY COLUMN `x` bigint NOT NULL",
		},
		{
			name: "create index",
			got:  CreateIndex("t", "idx_xy", "x", "y"),
			want: "CREATE INDEX `idx_xy` ON `t` (`x`, `y`)",
		},
		{
			name: "drop index",
			got:  DropIndex("t", "idx_xy"),
			want: "DROP INDEX `idx_xy` ON `t`",
		},
		{
			name: "drop table",
			got:  DropTable("t"),
			want: "DROP TABLE `t`",
		},
		{
			name: "rename table",
			got:  RenameTable("a", "b"),
			want: "RENAME TABLE `a` TO `b`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}
