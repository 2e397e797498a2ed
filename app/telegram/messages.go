package telegram

import (
	"fmt"
	"strings"
	"time"

	"mp3bot/m/v2/app/config"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/usage"

	"github.com/shopspring/decimal"
)

const DateLayout = "02/01/2006"

const premiumBenefits = `Aproveite todos os recursos premium:
• Downloads ilimitados
• Conversão de playlists
• Prioridade no processamento`

func price(cfg *config.Config) string {
	return cfg.SubscriptionPrice.StringFixed(2)
}

func megabytes(size int64) int64 {
	return size / (1024 * 1024)
}

func greetingMessage(now time.Time) string {
	return fmt.Sprintf(`%s, beleza? 🤙 Tô aqui pra te ajudar a baixar áudios do YouTube! 🎵

Manda aí o link do vídeo que você quer converter pra MP3! 🔥

Se precisar de uma ajudinha, só mandar "/help" que te explico melhor! 😉`, lib.GreetingForHour(now.Hour()))
}

func helpMessage(cfg *config.Config) string {
	return fmt.Sprintf(`🔥 Bot YouTube pra MP3 🎵

Como usar, é mamão com açúcar:
1️⃣ Manda o link do YouTube aí (vídeo ou playlist)
2️⃣ Relaxa que tô processando...
3️⃣ Pega teu MP3 na hora! 🤙

Comandos:
• /help - Te explico tudo de novo
• /stats - Estatísticas (só pros admin)
• /subscribe - Informações sobre a assinatura premium
• /pix - Gera um QR Code para pagamento via PIX
• /check - Verifica o status do seu pagamento
• /status - Veja sua assinatura e seu uso de hoje

Plano Premium - Apenas R$%s por %d dias:
• Downloads ilimitados 🚀
• Suporte a playlists (até %d vídeos) 🎧
• Prioridade no processamento ⚡

Plano Gratuito:
• %d conversões por dia
• Máximo %d vídeos por playlist

Limitações:
• Arquivo até %dMB
• Máximo %d vídeos por playlist`,
		price(cfg), cfg.SubscriptionDays, cfg.PlaylistLimit,
		cfg.DailyFreeQuota, cfg.FreePlaylistLimit,
		megabytes(cfg.MaxFileSizeBytes), cfg.PlaylistLimit)
}

func aiInstructions(cfg *config.Config) string {
	return fmt.Sprintf(config.AI_INSTRUCTIONS, cfg.DailyFreeQuota, cfg.FreePlaylistLimit, cfg.PlaylistLimit, price(cfg), cfg.SubscriptionDays)
}

func statsMessage(stats models.UsageStats, top []models.UserCount, isActive func(string) bool) string {
	lastError := stats.LastError
	if lastError == "" {
		lastError = "Zero! Tamo bem demais"
	}
	approval := 0
	if stats.Payments.Total > 0 {
		approval = int(decimal.NewFromInt(int64(stats.Payments.Successful * 100)).
			Div(decimal.NewFromInt(int64(stats.Payments.Total))).Round(0).IntPart())
	}

	var b strings.Builder
	fmt.Fprintf(&b, `📊 Estatísticas do Bot - Tá bombando! 🔥

• Conversões: %d
• Galera usando: %d pessoas
• Bugs: %d
• Último erro: %s

Pagamentos:
• Total de pagamentos: %d
• Pagamentos aprovados: %d
• Pagamentos falhos: %d
• Taxa de aprovação: %d%%

Galera que mais usa:`,
		stats.TotalConversions, len(stats.UniqueUsers), stats.Errors, lastError,
		stats.Payments.Total, stats.Payments.Successful, stats.Payments.Failed, approval)
	medals := []string{"🥇", "🥈", "🥉"}
	for i, user := range top {
		medal := "🏅"
		if i < len(medals) {
			medal = medals[i]
		}
		premium := ""
		if isActive(user.SubscriberID) {
			premium = " 💎"
		}
		fmt.Fprintf(&b, "\n%s %s%s: %d conversões", medal, lib.MaskSubscriberID(user.SubscriberID), premium, user.Conversions)
	}
	return b.String()
}

func subscriptionMessage(cfg *config.Config) string {
	return fmt.Sprintf(`💎 Assinatura Premium - R$%s 💎

Com nosso plano premium, você pode:
• Converter quantos vídeos quiser, sem limites! 🚀
• Baixar playlists de até %d vídeos de uma vez! 🎧
• Prioridade no processamento! ⏱️

Para assinar, é super simples:
1️⃣ Digite /pix para gerar um QR Code de pagamento
2️⃣ Pague o valor de R$%s usando o PIX
3️⃣ Sua assinatura será ativada automaticamente!

Sua assinatura ficará ativa por %d dias após a confirmação do pagamento! 🔓`,
		price(cfg), cfg.PlaylistLimit, price(cfg), cfg.SubscriptionDays)
}

func activeSubscriptionMessage(expiresAt time.Time) string {
	return fmt.Sprintf(`💎 Assinatura Premium Ativa 💎

Você já possui uma assinatura premium válida!

• Válida até: %s
• Status: ATIVO ✓

%s`, expiresAt.Format(DateLayout), premiumBenefits)
}

func approvedMessage(cfg *config.Config, expiresAt time.Time) string {
	return fmt.Sprintf(`✅ Pagamento Aprovado! ✅

Recebemos seu pagamento de R$%s e sua assinatura premium foi ativada!

• Válida até: %s
• Status: ATIVO ✓

%s

Obrigado por assinar! 🚀`, price(cfg), expiresAt.Format(DateLayout), premiumBenefits)
}

func alreadyApprovedMessage(expiresAt time.Time) string {
	expiry := "Data não encontrada"
	if !expiresAt.IsZero() {
		expiry = expiresAt.Format(DateLayout)
	}
	return fmt.Sprintf(`✅ Pagamento Já Aprovado ✅

Seu pagamento já foi processado anteriormente.

• Válida até: %s
• Status: ATIVO ✓

%s`, expiry, premiumBenefits)
}

func failedPaymentLabel(status models.PaymentStatus) string {
	switch status {
	case models.PaymentStatusRejected:
		return "Rejeitado"
	case models.PaymentStatusCancelled:
		return "Cancelado"
	default:
		return "Não Processado"
	}
}

func failedPaymentNotice(status models.PaymentStatus) string {
	return fmt.Sprintf(`❌ Pagamento %s ❌

Infelizmente seu pagamento não foi concluído.

Você pode tentar novamente digitando /pix para gerar um novo QR code.`, failedPaymentLabel(status))
}

func failedPaymentMessage(pending models.PendingPayment, status models.PaymentStatus) string {
	return fmt.Sprintf(`❌ Pagamento %s ❌

Infelizmente seu pagamento não foi concluído.

• ID do Pagamento: %s
• Data da geração: %s
• Status: %s

Você pode tentar novamente digitando /pix para gerar um novo QR code.`,
		failedPaymentLabel(status), pending.PaymentID, pending.CreatedAt.Format(DateLayout+" 15:04"), status)
}

func pendingPaymentMessage(cfg *config.Config, pending models.PendingPayment) string {
	return fmt.Sprintf(`⏳ Pagamento Pendente ⏳

Ainda não recebemos a confirmação do seu pagamento.

Se você já pagou, aguarde alguns minutos para o processamento.
O sistema verifica automaticamente a cada %s.

• ID do Pagamento: %s
• Data da geração: %s
• Status atual: Pendente

Se já se passaram mais de 15 minutos desde o pagamento, digite /pix para gerar um novo código.`,
		cfg.PaymentPollInterval, pending.PaymentID, pending.CreatedAt.Format(DateLayout+" 15:04"))
}

func verifyingPaymentMessage(pending models.PendingPayment) string {
	return fmt.Sprintf(`⚠️ Verificação de Pagamento em Andamento ⚠️

Estamos com dificuldades técnicas para consultar o status do seu pagamento.

• ID do Pagamento: %s
• Data da geração: %s
• Status atual: Em verificação

O sistema continuará tentando verificar automaticamente.
Se você já realizou o pagamento, ele será processado em breve.`,
		pending.PaymentID, pending.CreatedAt.Format(DateLayout+" 15:04"))
}

const noPendingPaymentMessage = "❓ Nenhum pagamento pendente encontrado ❓\n\nDigite /pix para gerar um novo código de pagamento."

const paymentsUnavailableMessage = "💤 Pagamentos indisponíveis no momento. Tente novamente mais tarde."

const pixFailedMessage = "❌ Não foi possível gerar o QR Code PIX. Por favor, tente novamente mais tarde ou entre em contato com o administrador."

func pixMessage(cfg *config.Config, charge *models.Charge) string {
	return fmt.Sprintf(`🔒 Assinatura Premium - R$%s 🔒

Escaneie o QR Code acima ou copie o código PIX abaixo:

%s

Após o pagamento, sua assinatura será ativada automaticamente. Use /check para verificar.

ID do Pagamento: %s`, price(cfg), charge.QRCode, charge.ProviderPaymentID)
}

func checkoutLinkMessage(cfg *config.Config, charge *models.Charge) string {
	return fmt.Sprintf(`🔒 Assinatura Premium - R$%s 🔒

Pague pelo link abaixo:

%s

Após o pagamento, sua assinatura será ativada automaticamente. Use /check para verificar.

ID do Pagamento: %s`, price(cfg), charge.QRCode, charge.ProviderPaymentID)
}

func devActivationMessage(expiresAt time.Time) string {
	return fmt.Sprintf(`✅ Assinatura Premium Ativada em Modo Desenvolvimento ✅

Sua assinatura foi ativada automaticamente porque estamos em ambiente de desenvolvimento!

• Válida até: %s
• Status: ATIVO ✓

%s

Nota: Em produção, será necessário o pagamento via PIX.`, expiresAt.Format(DateLayout), premiumBenefits)
}

func statusMessage(subscription models.Subscription, active bool, accounting *usage.Accounting, subscriberID string) string {
	if active {
		return fmt.Sprintf(`📊 Seu status 📊

• Plano: Premium 💎
• Válida até: %s
• Conversões: ilimitadas 🚀`, subscription.ExpiresAt.Format(DateLayout))
	}
	return fmt.Sprintf(`📊 Seu status 📊

• Plano: Gratuito
• Conversões hoje: %d de %d
• Restantes hoje: %d

💡 Quer conversões ilimitadas? Digite /subscribe`,
		accounting.UsedToday(subscriberID), accounting.DailyQuota(), accounting.RemainingFree(subscriberID))
}

const premiumDetectedMessage = "💎 Usuário Premium Detectado! 💎\nSua assinatura está ativa. Aproveite conversões ilimitadas! 🚀"

func freeModeMessage(remaining int) string {
	return fmt.Sprintf("📊 Modo Gratuito 📊\nVocê tem %d conversões restantes hoje.\n\n💡 Quer conversões ilimitadas? Digite /subscribe", remaining)
}

func dailyLimitMessage(cfg *config.Config) string {
	return fmt.Sprintf(`🔒 Limite diário atingido! 🔒

Você já converteu %d vídeos hoje, que é o limite do plano gratuito.

Quer converter mais? Assine nosso plano premium por apenas R$%s e tenha:
• Conversões ilimitadas 🚀
• Acesso a playlists 🎧

Digite /subscribe para saber como começar! 💎`, cfg.DailyFreeQuota, price(cfg))
}

const (
	convertingMessage   = "⏳ Já tô convertendo seu vídeo, coisa linda! Só um minutinho..."
	longVideoMessage    = "⚠️ Eita, esse vídeo é grandão! (mais de 30 minutos) Vou tentar, mas se der ruim não me xinga, tá? 😅"
	playlistDoneMessage = "✅ Playlist concluída! Tá tudo aí, aproveita! 🎧"

	errorPrefix       = "❌ Putz, deu ruim! "
	tooLargeMessage   = errorPrefix + "Arquivo muito grande pro Telegram aguentar. Tentei comprimir de várias formas, mas não deu certo. Tenta um vídeo menor ou música mais curta!"
	copyrightMessage  = errorPrefix + "Esse vídeo tá com copyright, os caras não deixam baixar. 🚫"
	genericErrMessage = errorPrefix + "Não consegui converter. Manda outro link aí, esse tá osso! 🤔"
)

func playlistNotice(cfg *config.Config, subscriber bool, limit int) string {
	if subscriber {
		return fmt.Sprintf("🔥 Playlist detectada! Vou baixar até %d vídeos pra você. Já tô no corre, aguenta aí... ⏳", limit)
	}
	return fmt.Sprintf("🔄 Playlist detectada! No plano gratuito você pode baixar até %d vídeos.\n\n💡 Para baixar mais, assine o plano premium por apenas R$%s! Digite /subscribe para saber mais.", limit, price(cfg))
}

func playlistHeader(title string, count int, total int, subscriber bool) string {
	suffix := ""
	if !subscriber {
		suffix = " (limite do plano gratuito)"
	}
	return fmt.Sprintf("📋 Playlist: %s\n📊 Baixando %d de %d vídeos%s, tamo junto! 💪", title, count, total, suffix)
}

func playlistItemMessage(index int, count int, title string) string {
	return fmt.Sprintf("⏳ Processando vídeo %d/%d: %s", index, count, title)
}

func playlistItemFailedMessage(index int, title string) string {
	return fmt.Sprintf("❌ Deu ruim no vídeo %d: \"%s\". Vou tentar o próximo! 🏃‍♂️", index, title)
}

func playlistItemTooLargeMessage(cfg *config.Config, title string) string {
	return fmt.Sprintf("⚠️ Mesmo após compressão, o arquivo de \"%s\" ficou maior que %dMB.", title, megabytes(cfg.MaxFileSizeBytes))
}
