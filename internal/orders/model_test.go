package orders

import "testing"

func TestClassifyMotivo(t *testing.T) {
	tests := []struct {
		name       string
		motivo     string
		wantKind   MotivoKind
		wantDetail string
	}{
		{"placed with dish", "PEDIU_OK: strogonoff de frango", KindPlaced, "strogonoff de frango"},
		{"skipped", "NAO_PEDIU: prato bloqueado", KindSkipped, "prato bloqueado"},
		{"skipped with space spelling", "nao pediu: sem aula", KindSkipped, "sem aula"},
		{"order error", "ERRO_PEDIDO: timeout no site", KindError, "timeout no site"},
		{"direct cancellation", "CANCELADO_DIRETAMENTE: Aluno solicitou via Bot.", KindCancelled, "Aluno solicitou via Bot."},
		{"email cancellation", "CANCELAMENTO_EMAIL: Enviado para CAE", KindCancelled, "Enviado para CAE"},
		{"no tag separator", "observacao livre", KindOther, ""},
		{"empty", "", KindOther, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, detail := ClassifyMotivo(tt.motivo)
			if kind != tt.wantKind {
				t.Errorf("kind = %v, want %v", kind, tt.wantKind)
			}
			if detail != tt.wantDetail {
				t.Errorf("detail = %q, want %q", detail, tt.wantDetail)
			}
		})
	}
}

func TestIsCancellationMotivo(t *testing.T) {
	tests := []struct {
		motivo string
		want   bool
	}{
		{"CANCELADO_DIRETAMENTE: Aluno solicitou via Bot.", true},
		{"CANCELAMENTO_EMAIL: Enviado para CAE em 10/06", true},
		{"cancelado pelo aluno", true},
		{"PEDIU_OK: arroz com feijão", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCancellationMotivo(tt.motivo); got != tt.want {
			t.Errorf("IsCancellationMotivo(%q) = %v, want %v", tt.motivo, got, tt.want)
		}
	}
}

func TestIsNoiseMotivo(t *testing.T) {
	tests := []struct {
		motivo string
		want   bool
	}{
		{"Final de semana", true},
		{"Cancelado anteriormente", true},
		{"PEDIU_OK: prato final de semana", false},
		{"PEDIU_OK: strogonoff", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isNoiseMotivo(tt.motivo); got != tt.want {
			t.Errorf("isNoiseMotivo(%q) = %v, want %v", tt.motivo, got, tt.want)
		}
	}
}
