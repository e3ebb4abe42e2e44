package runlog

import (
	"context"
	"fmt"
)

const createRunTable = `
CREATE TABLE IF NOT EXISTS processamento (
    id            bigserial PRIMARY KEY,
    nome_processo text        NOT NULL,
    inicio        timestamptz NOT NULL,
    fim           timestamptz,
    usuario       text,
    status        text        NOT NULL%s
)`

const createEventTable = `
CREATE TABLE IF NOT EXISTS processamento_log (
    id               bigserial PRIMARY KEY,
    processamento_id bigint,
    level            text NOT NULL,
    etapa            text,
    codigo           text,
    mensagem         text,
    detalhe          jsonb,
    stacktrace       text,
    criado_em        timestamptz NOT NULL DEFAULT now()
)`

const createEventIndex = `
CREATE INDEX IF NOT EXISTS processamento_log_processamento_id_idx
    ON processamento_log (processamento_id)`

// CreateSchema creates the tracking tables in the current schema if they are missing.
// withMessage adds the optional processamento.mensagem column.
func CreateSchema(ctx context.Context, db Querier, withMessage bool) error {
	messageColumn := ""
	if withMessage {
		messageColumn = ",\n    mensagem      text"
	}

	statements := []string{
		fmt.Sprintf(createRunTable, messageColumn),
		createEventTable,
		createEventIndex,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create tracking schema: %w", err)
		}
	}
	return nil
}
